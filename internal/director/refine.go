package director

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"media-studio/internal/aijson"
	"media-studio/internal/catalog"
	"media-studio/internal/compositor"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

var ErrNoSource = errors.New("no image to refine")

type EditRequest struct {
	Rendered    []byte
	Instruction string
	Product     catalog.Product
	Spec        design.Spec
	// Original is the untouched upload. When set it is always the render source.
	Original []byte
}

type EditPlan struct {
	Spec     design.Spec
	Delta    compositor.EditDelta
	Fallback bool
}

type EditResult struct {
	EditPlan
	Image []byte
}

type editResponse struct {
	design.Patch
	TextPosition   *string `json:"textPosition"`
	TextSize       *string `json:"textSize"`
	OverlayOpacity *string `json:"overlayOpacity"`
}

// PlanEdit resolves an instruction into a merged spec and layout delta. The
// keyword classifier is used whenever the model is unavailable; a safety
// refusal is returned as an error.
func (d *Director) PlanEdit(ctx context.Context, req EditRequest) (EditPlan, error) {
	spec := req.Spec.Normalize()

	resp, err := d.planEdit(ctx, req, spec)
	if err == nil {
		return EditPlan{
			Spec:  spec.Apply(resp.Patch),
			Delta: resp.delta(),
		}, nil
	}
	if isRefusal(err) {
		return EditPlan{}, err
	}

	d.logger.Warn("edit analysis fell back to keywords", "err", err)
	patch, delta := ClassifyEdit(req.Instruction)
	return EditPlan{Spec: spec.Apply(patch), Delta: delta, Fallback: true}, nil
}

func (d *Director) planEdit(ctx context.Context, req EditRequest, spec design.Spec) (editResponse, error) {
	var images []gemini.ImageInput
	if len(req.Rendered) > 0 {
		images = append(images, gemini.ImageInput{Data: req.Rendered, MimeType: "image/png"})
	}

	resp, err := d.generate(ctx, gemini.Request{
		Prompt: editPrompt(req.Product, spec, req.Instruction),
		Images: images,
		Schema: editSchema,
	})
	if err != nil {
		return editResponse{}, fmt.Errorf("plan edit: %w", err)
	}

	var out editResponse
	if err := aijson.Decode(resp.Text, &out); err != nil {
		return editResponse{}, err
	}
	return out, nil
}

func (r editResponse) delta() compositor.EditDelta {
	return compositor.EditDelta{
		TextPosition:   pick(r.TextPosition, compositor.PositionTop, compositor.PositionCenter, compositor.PositionBottom),
		TextSize:       pick(r.TextSize, compositor.SizeLarger, compositor.SizeSmaller, compositor.SizeSame),
		OverlayOpacity: pick(r.OverlayOpacity, compositor.OverlayDarker, compositor.OverlayLighter, compositor.OverlaySame),
	}
}

func pick(v *string, allowed ...string) string {
	if v == nil {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(*v))
	for _, a := range allowed {
		if s == a {
			return s
		}
	}
	return ""
}

// Refine plans the edit and re-renders from the original upload, falling
// back to the rendered bytes only when no original is known.
func (d *Director) Refine(ctx context.Context, req EditRequest) (EditResult, error) {
	src := req.Original
	if len(src) == 0 {
		src = req.Rendered
	}
	if len(src) == 0 {
		return EditResult{}, ErrNoSource
	}

	plan, err := d.PlanEdit(ctx, req)
	if err != nil {
		return EditResult{}, err
	}

	delta := plan.Delta
	img, err := d.render(src, req.Product, plan.Spec, &delta)
	if err != nil {
		return EditResult{}, err
	}
	return EditResult{EditPlan: plan, Image: img}, nil
}
