// Package director wraps the generative model behind the studio's chat,
// suggestion, refine and art-direction paths. Every model path has a
// deterministic fallback; only a safety refusal is reported to the caller.
package director

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"media-studio/internal/catalog"
	"media-studio/internal/compositor"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

var (
	ErrNoModel       = errors.New("no model configured")
	ErrEmptyReply    = errors.New("model reply has no assistant response")
	ErrNoSuggestions = errors.New("model returned no usable suggestions")
)

// Model is the subset of gemini.Client the director needs.
type Model interface {
	Generate(ctx context.Context, req gemini.Request) (gemini.Response, error)
}

// RenderFunc matches compositor.Render.
type RenderFunc func(src []byte, product catalog.Product, spec design.Spec, delta *compositor.EditDelta) ([]byte, error)

type Options struct {
	// Model may be nil; every call then takes its fallback path.
	Model         Model
	Render        RenderFunc
	SuggestionTTL time.Duration
	Logger        *slog.Logger
}

type Director struct {
	model       Model
	render      RenderFunc
	suggestions *cache.Cache
	logger      *slog.Logger
}

func New(opts Options) *Director {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	render := opts.Render
	if render == nil {
		render = compositor.Render
	}
	ttl := opts.SuggestionTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	return &Director{
		model:       opts.Model,
		render:      render,
		suggestions: cache.New(ttl, 2*ttl),
		logger:      logger,
	}
}

func (d *Director) generate(ctx context.Context, req gemini.Request) (gemini.Response, error) {
	if d.model == nil {
		return gemini.Response{}, ErrNoModel
	}
	return d.model.Generate(ctx, req)
}

func isRefusal(err error) bool {
	return errors.Is(err, gemini.ErrSafetyRefusal)
}
