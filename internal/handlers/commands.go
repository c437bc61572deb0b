package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"media-studio/internal/design"
	"media-studio/internal/director"
	"media-studio/internal/studio"
)

const helpText = "🍋 Recipe Labs Media Studio\n\n" +
	"Send photos (or an album) to add them to the batch, then /synthesize.\n" +
	"Plain text talks to the creative director and updates the design spec.\n\n" +
	"Commands:\n" +
	"/products - list output formats\n" +
	"/product <id> - choose the format for new uploads\n" +
	"/synthesize - render every pending asset\n" +
	"/assets - show the batch\n" +
	"/retry <id> - render one failed asset again\n" +
	"/remove <id> - delete an asset\n" +
	"/remix <id> - use a finished asset as template for the next upload\n" +
	"/refine <id> - edit one asset with plain-text instructions\n" +
	"/done - leave refine mode\n" +
	"/suggest - load design protocols for the current format\n" +
	"/apply <n> - apply suggestion n\n" +
	"/spec [field value] - show or edit the design spec (value - clears)\n" +
	"/export <id> - download the PNG\n" +
	"/clear - empty the batch\n" +
	"/reset - start over with a fresh batch, spec and conversation"

func (h *Handler) handleCommand(ctx context.Context, chatID int64, username string, msg *tgbotapi.Message) error {
	st := h.sessions.Studio(chatID, username)
	args := strings.TrimSpace(msg.CommandArguments())
	var ownerID int64
	if msg.From != nil {
		ownerID = msg.From.ID
	}

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "products":
		_, err := h.tg.SendTextWithKeyboard(chatID, productsText(st), productKeyboard(ownerID, st))
		return err
	case "product":
		return h.selectProduct(chatID, st, args)
	case "synthesize":
		return h.synthesize(ctx, chatID, ownerID, st)
	case "assets":
		return h.tg.SendText(chatID, assetsText(st))
	case "retry":
		return h.retry(ctx, chatID, st, strings.ToUpper(args))
	case "remove":
		if err := st.Remove(strings.ToUpper(args)); err != nil {
			return h.tg.SendText(chatID, describe(err))
		}
		return h.tg.SendText(chatID, "🗑 Removed "+strings.ToUpper(args)+".")
	case "remix":
		id := strings.ToUpper(args)
		if err := st.Remix(id); err != nil {
			return h.tg.SendText(chatID, describe(err))
		}
		return h.tg.SendText(chatID, "♻️ Template locked from "+id+". The next upload will follow its style.")
	case "refine":
		if err := st.Refine(strings.ToUpper(args)); err != nil {
			return h.tg.SendText(chatID, describe(err))
		}
		history := st.History()
		return h.tg.SendText(chatID, history[len(history)-1].Content)
	case "done":
		st.ExitRefine()
		return h.tg.SendText(chatID, "✅ Refine mode closed. Messages now go to the creative director.")
	case "suggest":
		h.tg.SendTyping(chatID)
		items := st.Suggestions(ctx, "")
		_, err := h.tg.SendTextWithKeyboard(chatID, suggestionsText(items), suggestionKeyboard(ownerID, items))
		return err
	case "apply":
		n, err := strconv.Atoi(args)
		if err != nil {
			return h.tg.SendText(chatID, "❌ Usage: /apply <number>")
		}
		reply, err := st.ApplySuggestion(n - 1)
		if err != nil {
			return h.tg.SendText(chatID, describe(err))
		}
		return h.tg.SendText(chatID, reply.Content)
	case "spec":
		return h.spec(chatID, st, args)
	case "export":
		id := strings.ToUpper(args)
		name, data, err := st.Export(id)
		if err != nil {
			return h.tg.SendText(chatID, describe(err))
		}
		return h.tg.SendDocument(chatID, name, data, name)
	case "clear":
		st.Clear()
		return h.tg.SendText(chatID, "✅ Batch cleared.")
	case "reset":
		h.sessions.Reset(chatID)
		return h.tg.SendText(chatID, "🔄 Fresh studio: batch, design spec and conversation are reset.")
	default:
		return h.tg.SendText(chatID, "❌ Unknown command. Use /help.")
	}
}

func (h *Handler) selectProduct(chatID int64, st *studio.Studio, id string) error {
	if id == "" {
		p := st.SelectedProduct()
		return h.tg.SendText(chatID, fmt.Sprintf("Current format: %s %s (%s). Use /product <id> to change.", p.Icon, p.Name, p.AspectRatio))
	}
	p, err := st.SelectProduct(strings.ToLower(id))
	if err != nil {
		return h.tg.SendText(chatID, describe(err))
	}
	return h.tg.SendText(chatID, fmt.Sprintf("✅ New uploads target %s %s (%s).", p.Icon, p.Name, p.AspectRatio))
}

func (h *Handler) synthesize(ctx context.Context, chatID, ownerID int64, st *studio.Studio) error {
	before := map[string]bool{}
	for _, a := range st.Assets() {
		if a.Status == studio.StatusIdle || a.Status == studio.StatusError {
			before[a.ID] = true
		}
	}
	if len(before) == 0 {
		return h.tg.SendText(chatID, "Nothing to render. Send photos first.")
	}

	h.tg.SendTyping(chatID)
	_ = h.tg.SendText(chatID, fmt.Sprintf("⚙️ Rendering %d asset(s)...", len(before)))

	sum, err := st.SynthesizeAll(ctx)
	if err != nil {
		return h.tg.SendText(chatID, describe(err))
	}

	var done []string
	for _, a := range st.Assets() {
		if !before[a.ID] {
			continue
		}
		switch a.Status {
		case studio.StatusCompleted:
			done = append(done, a.ID)
			if err := h.tg.SendPhoto(chatID, a.ID+".png", a.Result, fmt.Sprintf("%s · %s", a.ID, a.ProductName)); err != nil {
				return err
			}
		case studio.StatusError:
			_ = h.tg.SendText(chatID, fmt.Sprintf("⚠️ %s failed: %s\nUse /retry %s.", a.ID, a.Err, a.ID))
		}
	}
	summary := fmt.Sprintf("✅ Batch ready: %d completed, %d failed.", sum.Completed, sum.Failed)
	if kb, ok := assetKeyboard(ownerID, done); ok {
		_, err := h.tg.SendTextWithKeyboard(chatID, summary, kb)
		return err
	}
	return h.tg.SendText(chatID, summary)
}

func (h *Handler) retry(ctx context.Context, chatID int64, st *studio.Studio, id string) error {
	h.tg.SendTyping(chatID)
	if err := st.Retry(ctx, id); err != nil {
		return h.tg.SendText(chatID, describe(err))
	}
	a, err := st.Asset(id)
	if err != nil {
		return h.tg.SendText(chatID, describe(err))
	}
	return h.tg.SendPhoto(chatID, a.ID+".png", a.Result, fmt.Sprintf("%s · %s", a.ID, a.ProductName))
}

func (h *Handler) spec(chatID int64, st *studio.Studio, args string) error {
	if args == "" {
		return h.tg.SendText(chatID, specText(st.Spec()))
	}
	patch, err := parseSpecArgs(args)
	if err != nil {
		return h.tg.SendText(chatID, "❌ "+err.Error())
	}
	return h.tg.SendText(chatID, specText(st.UpdateSpec(patch)))
}

// parseSpecArgs reads "<field> <value>" into a patch. A value of "-"
// clears an optional field.
func parseSpecArgs(args string) (design.Patch, error) {
	field, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	value = strings.TrimSpace(value)
	if value == "" {
		return design.Patch{}, fmt.Errorf("usage: /spec <field> <value>")
	}
	if value == "-" {
		value = ""
	}

	var p design.Patch
	switch strings.ToLower(field) {
	case "title":
		p.EventTitle = design.String(value)
	case "palette":
		p.ColorPalette = design.String(value)
	case "vibe":
		p.Vibe = design.String(value)
	case "font":
		p.FontFamily = design.String(value)
	case "weight":
		p.FontWeight = design.String(value)
	case "spacing":
		p.LetterSpacing = design.String(value)
	case "date":
		p.Date = design.String(value)
		p.IncludeDate = design.Bool(value != "")
	case "showdate":
		on, err := parseOnOff(value)
		if err != nil {
			return design.Patch{}, err
		}
		p.IncludeDate = design.Bool(on)
	case "location":
		p.Location = design.String(value)
	case "notes":
		p.AdditionalNotes = design.String(value)
	default:
		return design.Patch{}, fmt.Errorf("unknown field %q (title, palette, vibe, font, weight, spacing, date, showdate, location, notes)", field)
	}
	return p, nil
}

func parseOnOff(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", v)
}

func productsText(st *studio.Studio) string {
	selected := st.SelectedProduct().ID

	var b strings.Builder
	b.WriteString("Formats:\n")
	for _, p := range st.Catalog().Products() {
		mark := "  "
		if p.ID == selected {
			mark = "▶ "
		}
		b.WriteString(fmt.Sprintf("%s%s %s - %s (%s)\n", mark, p.Icon, p.ID, p.Name, p.AspectRatio))
	}
	return strings.TrimRight(b.String(), "\n")
}

func assetsText(st *studio.Studio) string {
	assets := st.Assets()
	if len(assets) == 0 {
		return "The batch is empty. Send photos to start."
	}

	var b strings.Builder
	for _, a := range assets {
		b.WriteString(fmt.Sprintf("%s  %-8s %s", a.ID, a.ProductID, a.Status))
		if a.Remixing {
			b.WriteString(" (remix)")
		}
		if a.Err != "" {
			b.WriteString(": " + a.Err)
		}
		b.WriteString("\n")
	}
	s := st.Stats()
	b.WriteString(fmt.Sprintf("\nTotal %d · done %d · idle %d · failed %d", s.Total, s.Completed, s.Idle, s.Failed))
	if r, ok := st.Mode().(studio.Refining); ok {
		b.WriteString("\nRefining " + r.AssetID)
	}
	return b.String()
}

func suggestionsText(items []director.Suggestion) string {
	var b strings.Builder
	b.WriteString("Design protocols:\n")
	for i, s := range items {
		b.WriteString(fmt.Sprintf("%d. %s", i+1, s.Title))
		var parts []string
		for _, v := range []*string{s.Spec.EventTitle, s.Spec.Vibe, s.Spec.ColorPalette} {
			if v != nil && *v != "" {
				parts = append(parts, *v)
			}
		}
		if len(parts) > 0 {
			b.WriteString(" (" + strings.Join(parts, ", ") + ")")
		}
		b.WriteString("\n")
	}
	b.WriteString("Tap one or send /apply <n>.")
	return b.String()
}

func specText(s design.Spec) string {
	date := "off"
	if s.IncludeDate {
		date = s.Date
	}
	lines := []string{
		"Design spec:",
		"title: " + s.Title(),
		"palette: " + orDash(s.ColorPalette),
		"vibe: " + orDash(s.Vibe),
		"font: " + s.FontFamily + " " + s.FontWeight + ", spacing " + s.LetterSpacing,
		"date: " + date,
		"location: " + orDash(s.Location),
		"notes: " + orDash(s.AdditionalNotes),
	}
	return strings.Join(lines, "\n")
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
