package director

import (
	"context"
	"fmt"
	"strings"

	"media-studio/internal/aijson"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

const (
	ApologyReply  = "DIRECTOR: Interference detected. Confirming Recipe Labs brand protocols."
	historyWindow = 6
)

type Negotiation struct {
	Spec     design.Spec
	Reply    string
	Fallback bool
}

type negotiationResponse struct {
	UpdatedSpec       *design.Patch `json:"updatedSpec"`
	AssistantResponse string        `json:"assistantResponse"`
}

// Negotiate turns a chat message into an updated spec and a reply. It never
// fails: any model problem yields the current spec and ApologyReply.
func (d *Director) Negotiate(ctx context.Context, text string, history []gemini.Message, current design.Spec) Negotiation {
	current = current.Normalize()

	spec, reply, err := d.negotiate(ctx, text, history, current)
	if err != nil {
		d.logger.Warn("spec negotiation fell back", "err", err)
		return Negotiation{Spec: current, Reply: ApologyReply, Fallback: true}
	}
	return Negotiation{Spec: spec, Reply: reply}
}

func (d *Director) negotiate(ctx context.Context, text string, history []gemini.Message, current design.Spec) (design.Spec, string, error) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	resp, err := d.generate(ctx, gemini.Request{
		System:  negotiatorSystem(current),
		History: history,
		Prompt:  text,
		Schema:  negotiationSchema,
	})
	if err != nil {
		return design.Spec{}, "", fmt.Errorf("negotiate: %w", err)
	}

	var out negotiationResponse
	if err := aijson.Decode(resp.Text, &out); err != nil {
		return design.Spec{}, "", err
	}
	reply := strings.TrimSpace(out.AssistantResponse)
	if reply == "" {
		return design.Spec{}, "", ErrEmptyReply
	}

	spec := current
	if out.UpdatedSpec != nil {
		spec = current.Apply(*out.UpdatedSpec)
	}
	return spec, reply, nil
}
