package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"media-studio/internal/catalog"
	"media-studio/internal/director"
	"media-studio/internal/gemini"
)

// SynthesizeAll renders every idle or failed asset, one at a time, in the
// order they were added. A failing asset is recorded and the batch goes on.
func (s *Studio) SynthesizeAll(ctx context.Context) (Summary, error) {
	if !s.slot.TryAcquire(1) {
		return Summary{}, ErrBusy
	}
	defer s.slot.Release(1)

	ids := s.pending()
	if len(ids) == 0 {
		return Summary{}, nil
	}

	s.mu.Lock()
	s.appendLogLocked("VAULT: INITIALIZING_BATCH")
	s.mu.Unlock()

	var sum Summary
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		switch err := s.process(ctx, id); {
		case err == nil:
			sum.Completed++
		case errors.Is(err, errDropped), errors.Is(err, ErrNotFound):
			sum.Dropped++
		default:
			sum.Failed++
		}
	}

	s.mu.Lock()
	s.appendLogLocked("VAULT: BATCH_READY")
	s.mu.Unlock()
	return sum, nil
}

// Retry renders a single idle or failed asset.
func (s *Studio) Retry(ctx context.Context, id string) error {
	if !s.slot.TryAcquire(1) {
		return ErrBusy
	}
	defer s.slot.Release(1)

	s.mu.Lock()
	a := s.findLocked(id)
	switch {
	case a == nil:
		s.mu.Unlock()
		return ErrNotFound
	case a.Status != StatusIdle && a.Status != StatusError:
		s.mu.Unlock()
		return ErrNotRetryable
	}
	s.mu.Unlock()

	return s.process(ctx, id)
}

func (s *Studio) pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for _, a := range s.assets {
		if a.Status == StatusIdle || a.Status == StatusError {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

type renderJob struct {
	id       string
	source   []byte
	mimeType string
	note     string
	template []byte
	product  catalog.Product
}

// process runs one asset through art direction and the compositor. The
// caller must hold the render slot.
func (s *Studio) process(ctx context.Context, id string) error {
	job, err := s.begin(id)
	if err != nil {
		return err
	}
	start := time.Now()
	spec := s.store.Get()

	direction, err := s.director.Direct(ctx, director.DirectionRequest{
		Source:   job.source,
		MimeType: job.mimeType,
		Product:  job.product,
		Spec:     spec,
		Note:     job.note,
		Template: job.template,
	})
	if err != nil {
		if errors.Is(err, gemini.ErrSafetyRefusal) {
			return s.fail(id, err)
		}
		s.logger.Warn("art direction unavailable", "asset", id, "err", err)
	}

	result, err := s.render(job.source, job.product, spec, nil)
	if err != nil {
		return s.fail(id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		s.logger.Info("dropping result for removed asset", "asset", id)
		return errDropped
	}
	a.Result = result
	a.Status = StatusCompleted
	a.Err = ""
	a.Remixing = false
	a.template = nil
	a.Direction = direction
	s.appendLogLocked("KERNEL: VERIFIED_" + id)
	s.logger.Debug("asset rendered", "asset", id, "product", job.product.ID, "dur_ms", time.Since(start).Milliseconds())
	return nil
}

func (s *Studio) begin(id string) (renderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		return renderJob{}, ErrNotFound
	}
	product := s.catalog.Resolve(a.ProductID)

	a.Status = StatusProcessing
	a.Err = ""
	a.ProductID = product.ID
	s.appendLogLocked(fmt.Sprintf("KERNEL: RENDERING_%s_%s", id, product.AspectRatio))

	return renderJob{
		id:       id,
		source:   a.Source,
		mimeType: a.MimeType,
		note:     a.Note,
		template: a.template,
		product:  product,
	}, nil
}

// fail records err on the asset, keeping any previous result.
func (s *Studio) fail(id string, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		return errDropped
	}
	a.Status = StatusError
	a.Err = err.Error()
	s.appendLogLocked(fmt.Sprintf("KERNEL: FAULT_%s: %s", id, err))
	s.logger.Warn("asset render failed", "asset", id, "err", err)
	return err
}
