package compositor

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	_ "golang.org/x/image/webp"

	"media-studio/internal/catalog"
	"media-studio/internal/design"
)

const (
	PositionTop    = "top"
	PositionCenter = "center"
	PositionBottom = "bottom"

	SizeLarger  = "larger"
	SizeSmaller = "smaller"
	SizeSame    = "same"

	OverlayDarker  = "darker"
	OverlayLighter = "lighter"
	OverlaySame    = "same"
)

// EditDelta carries per-render layout overrides. Zero values select defaults.
type EditDelta struct {
	TextPosition   string `json:"textPosition,omitempty"`
	TextSize       string `json:"textSize,omitempty"`
	OverlayOpacity string `json:"overlayOpacity,omitempty"`
}

func (d EditDelta) IsZero() bool {
	return d == EditDelta{}
}

type size struct{ W, H int }

var dimensions = map[catalog.AspectRatio]size{
	catalog.Vertical:  {W: 1080, H: 1920},
	catalog.Square:    {W: 1080, H: 1080},
	catalog.Wide:      {W: 1920, H: 1080},
	catalog.Portrait:  {W: 1080, H: 1440},
	catalog.Landscape: {W: 1440, H: 1080},
}

var fallbackSize = size{W: 1080, H: 1080}

func Dimensions(ratio catalog.AspectRatio) (int, int) {
	if s, ok := dimensions[ratio]; ok {
		return s.W, s.H
	}
	return fallbackSize.W, fallbackSize.H
}

func overlayOpacity(tier string) float64 {
	switch tier {
	case OverlayDarker:
		return 0.7
	case OverlayLighter:
		return 0.25
	default:
		return 0.45
	}
}

func textAnchor(position string) float64 {
	switch position {
	case PositionTop:
		return 0.25
	case PositionBottom:
		return 0.65
	default:
		return 0.45
	}
}

func textScale(tier string) float64 {
	switch tier {
	case SizeLarger:
		return 1.25
	case SizeSmaller:
		return 0.75
	default:
		return 1
	}
}

// maxSourcePixels caps the decoded size of a source image.
const maxSourcePixels = 50_000_000

// Render composes a branded asset from src. Identical inputs produce
// identical PNG bytes. Nothing is returned when an error occurs.
func Render(src []byte, product catalog.Product, spec design.Spec, delta *EditDelta) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return nil, &DecodeError{Err: fmt.Errorf("source too large: %dx%d", cfg.Width, cfg.Height)}
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, &DecodeError{Err: fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())}
	}

	var d EditDelta
	if delta != nil {
		d = *delta
	}
	spec = spec.Normalize()

	width, height := Dimensions(product.AspectRatio)
	dc, err := newSurface(width, height)
	if err != nil {
		return nil, err
	}
	w, h := float64(width), float64(height)

	dc.SetColor(colorBgDark)
	dc.Clear()
	dc.DrawImage(imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), 0, 0)

	drawTechGrid(dc, w, h)
	drawOverlay(dc, w, h, overlayOpacity(d.OverlayOpacity))

	if err := drawHeader(dc, w); err != nil {
		return nil, err
	}
	if err := drawContent(dc, w, h, spec, d); err != nil {
		return nil, err
	}
	if err := drawFooter(dc, w, h); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, dc.Image()); err != nil {
		return nil, &SurfaceError{Op: "encode png", Err: err}
	}
	return buf.Bytes(), nil
}

func newSurface(width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, &SurfaceError{Op: fmt.Sprintf("invalid canvas %dx%d", width, height)}
	}
	return gg.NewContext(width, height), nil
}

func padding(w float64) float64 {
	return w * 0.055
}

func drawHeader(dc *gg.Context, w float64) error {
	pad := padding(w)
	logoSize := w * 0.08
	drawLogo(dc, pad+logoSize/2, pad+logoSize/2, logoSize)

	textX := pad + logoSize + 15

	face, err := newFace("gobold", w*0.022)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	dc.SetColor(colorLemon)
	dc.DrawStringAnchored(Wordmark, textX, pad+logoSize*0.35, 0, 0.5)

	face, err = newFace("gomonobold", w*0.014)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	dc.SetColor(colorTextMuted)
	dc.DrawStringAnchored(Tagline, textX, pad+logoSize*0.65, 0, 0.5)

	drawSpectrumBar(dc, 0, w, topBarH)
	return nil
}

func drawContent(dc *gg.Context, w, h float64, spec design.Spec, d EditDelta) error {
	textY := h * textAnchor(d.TextPosition)
	fontSize := w * 0.085 * textScale(d.TextSize)
	title := spec.Title()
	tracking := trackingEm(spec.LetterSpacing)

	face, fontSize, err := fitTitle(dc, fontName(spec.FontFamily, spec.FontWeight), title, fontSize, tracking, w*0.9)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)

	dc.SetRGBA(0, 0, 0, 0.5)
	drawTracked(dc, title, w/2+4, textY+4, tracking*fontSize)
	dc.SetColor(colorLemon)
	drawTracked(dc, title, w/2, textY, tracking*fontSize)

	if vibe := strings.TrimSpace(spec.Vibe); vibe != "" {
		face, err := newFace("gomedium", fontSize*0.25)
		if err != nil {
			return err
		}
		dc.SetFontFace(face)
		dc.SetColor(colorLemonLight)
		dc.DrawStringAnchored(strings.ToUpper(vibe), w/2, textY+fontSize*0.7, 0.5, 0.5)
	}

	if date := strings.TrimSpace(spec.Date); spec.IncludeDate && date != "" {
		if err := drawDateBadge(dc, w, textY+fontSize*1.1, fontSize*0.2, strings.ToUpper(date)); err != nil {
			return err
		}
	}
	return nil
}

func drawDateBadge(dc *gg.Context, w, y, fontSize float64, text string) error {
	face, err := newFace("gomonobold", fontSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	textW, _ := dc.MeasureString(text)

	bx := w/2 - textW/2 - 20
	by := y - fontSize*0.6
	bw := textW + 40
	bh := fontSize * 1.8
	radius := bh / 2
	if radius > 25 {
		radius = 25
	}

	dc.DrawRoundedRectangle(bx, by, bw, bh, radius)
	dc.SetColor(withAlpha(colorLemon, 0.15))
	dc.FillPreserve()
	dc.SetColor(colorLemon)
	dc.SetLineWidth(1)
	dc.Stroke()

	dc.DrawStringAnchored(text, w/2, by+bh/2, 0.5, 0.5)
	return nil
}

func drawFooter(dc *gg.Context, w, h float64) error {
	fontSize := w * 0.028
	face, err := newFace("gobold", fontSize)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)
	urlW, _ := dc.MeasureString(FooterURL)

	y := h - padding(w) - 30
	dc.DrawRoundedRectangle(w/2-urlW/2-25, y-fontSize*0.7, urlW+50, fontSize*1.8, 8)
	dc.SetColor(withAlpha(colorBgDark, 0.8))
	dc.Fill()

	dc.SetColor(colorLemon)
	dc.DrawStringAnchored(FooterURL, w/2, y+fontSize*0.2, 0.5, 0.5)

	drawSpectrumBar(dc, h-bottomBarH, w, bottomBarH)
	return nil
}
