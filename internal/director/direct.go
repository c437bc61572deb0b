package director

import (
	"context"
	"fmt"
	"strings"

	"media-studio/internal/catalog"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

type DirectionRequest struct {
	Source   []byte
	MimeType string
	Product  catalog.Product
	Spec     design.Spec
	Note     string
	// Template is a previously rendered asset used as a style reference.
	Template []byte
}

// Direct asks the model how branding should sit on the source image. Without
// a model it returns an empty direction and no error.
func (d *Director) Direct(ctx context.Context, req DirectionRequest) (string, error) {
	if d.model == nil {
		return "", nil
	}

	mime := req.MimeType
	if mime == "" {
		mime = "image/png"
	}
	images := []gemini.ImageInput{{Data: req.Source, MimeType: mime}}
	if len(req.Template) > 0 {
		images = append(images, gemini.ImageInput{Data: req.Template, MimeType: "image/png"})
	}

	resp, err := d.generate(ctx, gemini.Request{
		Prompt: directionPrompt(req.Product, req.Spec.Normalize(), req.Note, len(req.Template) > 0),
		Images: images,
	})
	if err != nil {
		return "", fmt.Errorf("art direction: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
