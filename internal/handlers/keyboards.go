package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"media-studio/internal/director"
	"media-studio/internal/studio"
)

const (
	callbackPrefix = "ms"
	// maxAssetRows keeps the batch keyboard inside Telegram's markup limits.
	maxAssetRows = 10
)

// cb encodes callback data as prefix:owner:action[:args].
func cb(ownerID int64, action string, args ...string) string {
	parts := append([]string{callbackPrefix, strconv.FormatInt(ownerID, 10), action}, args...)
	return strings.Join(parts, ":")
}

func productKeyboard(ownerID int64, st *studio.Studio) tgbotapi.InlineKeyboardMarkup {
	selected := st.SelectedProduct().ID

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, p := range st.Catalog().Products() {
		label := p.Icon + " " + p.Name
		if p.ID == selected {
			label = "✅ " + p.Name
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "product", p.ID)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func suggestionKeyboard(ownerID int64, items []director.Suggestion) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items))
	for i, s := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d. %s", i+1, s.Title), cb(ownerID, "apply", strconv.Itoa(i))),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// assetKeyboard offers follow-up actions for completed assets.
func assetKeyboard(ownerID int64, ids []string) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(ids) > maxAssetRows {
		ids = ids[:maxAssetRows]
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ "+id, cb(ownerID, "refine", id)),
			tgbotapi.NewInlineKeyboardButtonData("♻️ Remix", cb(ownerID, "remix", id)),
			tgbotapi.NewInlineKeyboardButtonData("💾 PNG", cb(ownerID, "export", id)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), len(rows) > 0
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil || q.From == nil {
		return nil
	}
	data := strings.TrimSpace(q.Data)
	if !strings.HasPrefix(data, callbackPrefix+":") {
		return nil
	}

	parts := strings.Split(data, ":")
	if len(parts) < 4 {
		return nil
	}

	ownerID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	action, arg := parts[2], parts[3]
	chatID := q.Message.Chat.ID
	st := h.sessions.Studio(chatID, q.From.UserName)

	switch action {
	case "product":
		p, err := st.SelectProduct(arg)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, describe(err), true)
		}
		_ = h.tg.AnswerCallback(q.ID, p.Name, false)
		return h.tg.EditTextWithKeyboard(chatID, q.Message.MessageID, productsText(st), productKeyboard(ownerID, st))
	case "apply":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil
		}
		reply, err := st.ApplySuggestion(n)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, describe(err), true)
		}
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
		return h.tg.SendText(chatID, reply.Content)
	case "refine":
		if err := st.Refine(arg); err != nil {
			return h.tg.AnswerCallback(q.ID, describe(err), true)
		}
		_ = h.tg.AnswerCallback(q.ID, "OK", false)
		history := st.History()
		return h.tg.SendText(chatID, history[len(history)-1].Content)
	case "remix":
		if err := st.Remix(arg); err != nil {
			return h.tg.AnswerCallback(q.ID, describe(err), true)
		}
		return h.tg.AnswerCallback(q.ID, "Template locked. Send the next photo.", false)
	case "export":
		name, data, err := st.Export(arg)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, describe(err), true)
		}
		_ = h.tg.AnswerCallback(q.ID, "Sending "+name, false)
		return h.tg.SendDocument(chatID, name, data, name)
	default:
		return h.tg.AnswerCallback(q.ID, "OK", false)
	}
}
