package compositor

import (
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
)

func trackedWidth(dc *gg.Context, text string, tracking float64) float64 {
	var total float64
	n := 0
	for _, r := range text {
		adv, _ := dc.MeasureString(string(r))
		total += adv
		n++
	}
	if n > 1 {
		total += tracking * float64(n-1)
	}
	return total
}

// drawTracked draws text centered on (cx, cy) with extra spacing between glyphs.
func drawTracked(dc *gg.Context, text string, cx, cy, tracking float64) {
	if tracking == 0 {
		dc.DrawStringAnchored(text, cx, cy, 0.5, 0.5)
		return
	}

	_, h := dc.MeasureString(text)
	x := cx - trackedWidth(dc, text, tracking)/2
	y := cy + h/2
	for _, r := range text {
		s := string(r)
		dc.DrawString(s, x, y)
		adv, _ := dc.MeasureString(s)
		x += adv + tracking
	}
}

// fitTitle shrinks the title face until the tracked text fits maxWidth.
func fitTitle(dc *gg.Context, name, text string, size, trackingEm, maxWidth float64) (font.Face, float64, error) {
	face, err := newFace(name, size)
	if err != nil {
		return nil, 0, err
	}
	dc.SetFontFace(face)

	width := trackedWidth(dc, text, trackingEm*size)
	if width <= maxWidth || width == 0 {
		return face, size, nil
	}

	size *= maxWidth / width
	face, err = newFace(name, size)
	if err != nil {
		return nil, 0, err
	}
	return face, size, nil
}
