package director

import (
	"context"
	"fmt"
	"strings"

	"github.com/patrickmn/go-cache"

	"media-studio/internal/aijson"
	"media-studio/internal/catalog"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

const maxSuggestions = 3

// Suggestion is a named spec preset.
type Suggestion struct {
	Title string       `json:"title"`
	Spec  design.Patch `json:"spec"`
}

type Suggestions struct {
	Items    []Suggestion
	Fallback bool
}

type suggestionResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// FallbackSuggestions are shown whenever the model cannot produce presets.
func FallbackSuggestions() []Suggestion {
	return []Suggestion{
		{
			Title: "MODERN_TECH",
			Spec: design.Patch{
				EventTitle:   design.String("Recipe Labs"),
				ColorPalette: design.String("Lemon & Forest Gradient"),
				Vibe:         design.String("Modern Tech"),
			},
		},
		{
			Title: "CREATIVE_BOLD",
			Spec: design.Patch{
				EventTitle:   design.String("Recipe Labs AI"),
				ColorPalette: design.String("Vibrant Lemon"),
				Vibe:         design.String("Creative Bold"),
			},
		},
	}
}

func (d *Director) Suggest(ctx context.Context, product catalog.Product, current design.Spec) Suggestions {
	key := product.ID + ":" + current.Fingerprint()
	if v, ok := d.suggestions.Get(key); ok {
		return Suggestions{Items: cloneSuggestions(v.([]Suggestion))}
	}

	items, err := d.suggest(ctx, product, current)
	if err != nil {
		d.logger.Warn("suggestions fell back", "product", product.ID, "err", err)
		return Suggestions{Items: FallbackSuggestions(), Fallback: true}
	}

	d.suggestions.Set(key, cloneSuggestions(items), cache.DefaultExpiration)
	return Suggestions{Items: items}
}

func (d *Director) suggest(ctx context.Context, product catalog.Product, current design.Spec) ([]Suggestion, error) {
	resp, err := d.generate(ctx, gemini.Request{
		Prompt: suggestionPrompt(product, current.Normalize()),
		Schema: suggestionSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	var out suggestionResponse
	if err := aijson.Decode(resp.Text, &out); err != nil {
		return nil, err
	}

	items := make([]Suggestion, 0, maxSuggestions)
	for _, s := range out.Suggestions {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}
		items = append(items, s)
		if len(items) == maxSuggestions {
			break
		}
	}
	if len(items) == 0 {
		return nil, ErrNoSuggestions
	}
	return items, nil
}

func cloneSuggestions(in []Suggestion) []Suggestion {
	out := make([]Suggestion, len(in))
	copy(out, in)
	return out
}
