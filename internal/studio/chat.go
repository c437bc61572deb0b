package studio

import (
	"context"
	"fmt"
	"strings"

	"media-studio/internal/catalog"
	"media-studio/internal/director"
	"media-studio/internal/gemini"
)

// Chat answers one user message. In Negotiating mode the message edits the
// shared spec; in Refining mode it edits the targeted asset. The outcome is
// computed first and then applied, together with both messages, under a
// single lock.
func (s *Studio) Chat(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	mode := s.mode
	s.mu.Unlock()

	if r, ok := mode.(Refining); ok {
		msg, handled, err := s.chatRefine(ctx, text, r.AssetID)
		if handled || err != nil {
			return msg, err
		}
	}
	return s.chatNegotiate(ctx, text), nil
}

func (s *Studio) chatNegotiate(ctx context.Context, text string) Message {
	s.mu.Lock()
	history := make([]gemini.Message, 0, len(s.history))
	for _, m := range s.history {
		history = append(history, gemini.Message{Role: m.Role, Text: m.Content})
	}
	s.appendLogLocked("DIRECTOR: CONSULTING_TERMINAL...")
	s.mu.Unlock()

	n := s.director.Negotiate(ctx, text, history, s.store.Get())

	s.mu.Lock()
	defer s.mu.Unlock()

	reply := Message{Role: RoleAssistant, Content: n.Reply, Time: s.now()}
	s.appendMessagesLocked(Message{Role: RoleUser, Content: text, Time: reply.Time}, reply)
	if n.Fallback {
		s.appendLogLocked("DIRECTOR: COMMS_FAULT")
	} else {
		s.store.Replace(n.Spec)
		s.appendLogLocked("DIRECTOR: SPEC_SYNCED")
	}
	return reply
}

// chatRefine reports handled=false when the target has nothing to refine,
// in which case the message goes to the negotiator instead.
func (s *Studio) chatRefine(ctx context.Context, text, id string) (Message, bool, error) {
	if !s.slot.TryAcquire(1) {
		return Message{}, false, ErrBusy
	}
	defer s.slot.Release(1)

	s.mu.Lock()
	a := s.findLocked(id)
	if a == nil || !a.HasResult() {
		if a == nil {
			s.mode = Negotiating{}
		}
		s.mu.Unlock()
		return Message{}, false, nil
	}
	req := director.EditRequest{
		Rendered:    a.Result,
		Instruction: text,
		Product:     s.catalog.Resolve(a.ProductID),
		Original:    a.Source,
	}
	a.Status = StatusProcessing
	a.Err = ""
	s.appendLogLocked(fmt.Sprintf("AGENT: PROCESSING_EDIT_REQUEST_%s...", id))
	s.mu.Unlock()

	req.Spec = s.store.Get()
	res, err := s.director.Refine(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	user := Message{Role: RoleUser, Content: text, Time: now}
	a = s.findLocked(id)
	if a == nil {
		reply := Message{Role: RoleAssistant, Content: fmt.Sprintf("AGENT: %s was removed before the edit finished.", id), Time: now}
		s.appendMessagesLocked(user, reply)
		return reply, true, nil
	}

	if err != nil {
		a.Status = StatusError
		a.Err = err.Error()
		reply := Message{
			Role:    RoleAssistant,
			Content: fmt.Sprintf("AGENT: Error during refinement: %s. Please try a different edit instruction.", err),
			Time:    now,
		}
		s.appendMessagesLocked(user, reply)
		s.appendLogLocked("AGENT: EDIT_FAULT: " + err.Error())
		s.logger.Warn("refine failed", "asset", id, "err", err)
		return reply, true, nil
	}

	a.Result = res.Image
	a.Status = StatusCompleted
	a.Err = ""
	if r, ok := s.mode.(Refining); ok && r.AssetID == id {
		s.mode = Negotiating{}
	}
	reply := Message{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("AGENT: Refinement complete. Applied %q to %s. Check Studio Archive for updated asset.", text, id),
		Time:    now,
	}
	s.appendMessagesLocked(user, reply)
	s.appendLogLocked("AGENT: EDIT_APPLIED_" + id)
	return reply, true, nil
}

// Suggestions loads design presets for a product. An empty productID uses
// the selected product.
func (s *Studio) Suggestions(ctx context.Context, productID string) []director.Suggestion {
	product := s.productFor(productID)

	s.mu.Lock()
	s.appendLogLocked(fmt.Sprintf("DIRECTOR: ANALYZING_%s_PROTOCOLS", strings.ToUpper(product.ID)))
	s.mu.Unlock()

	res := s.director.Suggest(ctx, product, s.store.Get())

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.Fallback {
		s.appendLogLocked("DIRECTOR: SUGGESTION_FAULT")
	}
	s.suggestions = res.Items
	s.suggestFor = product
	return append([]director.Suggestion(nil), res.Items...)
}

// ApplySuggestion merges the i-th loaded suggestion into the design spec.
func (s *Studio) ApplySuggestion(i int) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.suggestions) {
		return Message{}, ErrNoSuggestion
	}
	sg := s.suggestions[i]
	s.store.Apply(sg.Spec)

	reply := Message{
		Role:    RoleAssistant,
		Content: fmt.Sprintf("DIRECTOR: Protocol %q locked. Applied specialized %s blueprint.", sg.Title, s.suggestFor.Name),
	}
	s.appendMessagesLocked(reply)
	s.appendLogLocked("BRAND_PROTOCOL: " + sg.Title)
	return s.history[len(s.history)-1], nil
}

func (s *Studio) productFor(id string) catalog.Product {
	if id != "" {
		return s.catalog.Resolve(id)
	}
	return s.SelectedProduct()
}

// Export returns the download name and bytes of a rendered asset.
func (s *Studio) Export(id string) (string, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		return "", nil, ErrNotFound
	}
	if !a.HasResult() {
		return "", nil, ErrNoResult
	}
	name := fmt.Sprintf("%s_%s_%s.png", s.brandPrefix, strings.ToUpper(a.ProductID), a.ID)
	return name, append([]byte(nil), a.Result...), nil
}
