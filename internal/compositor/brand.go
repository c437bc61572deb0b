package compositor

import (
	"image/color"

	"github.com/fogleman/gg"
)

const (
	Wordmark   = "RECIPE LABS"
	Tagline    = "AI CREATIVE SUITE"
	FooterURL  = "madebyrecipe.com"
	gridSize   = 50.0
	gridAlpha  = 0.02
	topBarH    = 3.0
	bottomBarH = 4.0
)

var (
	colorLemon      = color.NRGBA{R: 0xF5, G: 0xD5, B: 0x47, A: 0xFF}
	colorLemonLight = color.NRGBA{R: 0xF7, G: 0xE0, B: 0x7A, A: 0xFF}
	colorLemonDark  = color.NRGBA{R: 0xD4, G: 0xB8, B: 0x3A, A: 0xFF}
	colorForest     = color.NRGBA{R: 0x4A, G: 0x7C, B: 0x4E, A: 0xFF}
	colorSage       = color.NRGBA{R: 0x6B, G: 0x8E, B: 0x6B, A: 0xFF}
	colorBgDark     = color.NRGBA{R: 0x0F, G: 0x14, B: 0x10, A: 0xFF}
	colorTextMuted  = color.NRGBA{R: 0xA8, G: 0xB4, B: 0xA4, A: 0xFF}
)

func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(clamp01(a)*255 + 0.5)
	return c
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func drawTechGrid(dc *gg.Context, w, h float64) {
	dc.SetColor(withAlpha(colorLemon, gridAlpha))
	dc.SetLineWidth(1)
	for x := 0.0; x <= w; x += gridSize {
		dc.DrawLine(x, 0, x, h)
	}
	for y := 0.0; y <= h; y += gridSize {
		dc.DrawLine(0, y, w, y)
	}
	dc.Stroke()
}

func drawSpectrumBar(dc *gg.Context, y, w, h float64) {
	grad := gg.NewLinearGradient(0, y, w, y)
	grad.AddColorStop(0, colorLemon)
	grad.AddColorStop(0.25, colorLemonDark)
	grad.AddColorStop(0.5, colorForest)
	grad.AddColorStop(0.75, colorSage)
	grad.AddColorStop(1, colorBgDark)

	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, y, w, h)
	dc.Fill()
}

// drawLogo paints the rounded "R" mark centered on (cx, cy). Glyph
// coordinates live in a 100x100 box.
func drawLogo(dc *gg.Context, cx, cy, size float64) {
	x0, y0 := cx-size/2, cy-size/2

	grad := gg.NewLinearGradient(x0, y0, x0+size, y0+size)
	grad.AddColorStop(0, colorLemon)
	grad.AddColorStop(0.5, colorLemonDark)
	grad.AddColorStop(1, colorForest)

	dc.Push()
	dc.Translate(x0, y0)
	dc.Scale(size/100, size/100)

	dc.DrawRoundedRectangle(0, 0, 100, 100, 16)
	dc.SetFillStyle(grad)
	dc.Fill()

	dc.MoveTo(30, 25)
	dc.LineTo(55, 25)
	dc.CubicTo(66, 25, 75, 34, 75, 45)
	dc.CubicTo(75, 56, 66, 65, 55, 65)
	dc.LineTo(50, 65)
	dc.LineTo(70, 75)
	dc.LineTo(50, 75)
	dc.LineTo(30, 65)
	dc.ClosePath()
	dc.SetColor(color.White)
	dc.Fill()

	dc.MoveTo(40, 35)
	dc.LineTo(40, 55)
	dc.LineTo(55, 55)
	dc.CubicTo(60.5, 55, 65, 50.5, 65, 45)
	dc.CubicTo(65, 39.5, 60.5, 35, 55, 35)
	dc.ClosePath()
	dc.SetFillStyle(grad)
	dc.Fill()

	dc.Pop()
}

// drawOverlay darkens the top and bottom 40% so light text stays legible.
func drawOverlay(dc *gg.Context, w, h, opacity float64) {
	top := gg.NewLinearGradient(0, 0, 0, h*0.4)
	top.AddColorStop(0, withAlpha(colorBgDark, opacity*0.9))
	top.AddColorStop(1, withAlpha(colorBgDark, 0))
	dc.SetFillStyle(top)
	dc.DrawRectangle(0, 0, w, h*0.4)
	dc.Fill()

	bottom := gg.NewLinearGradient(0, h*0.6, 0, h)
	bottom.AddColorStop(0, withAlpha(colorBgDark, 0))
	bottom.AddColorStop(1, withAlpha(colorBgDark, opacity*1.1))
	dc.SetFillStyle(bottom)
	dc.DrawRectangle(0, h*0.6, w, h*0.4)
	dc.Fill()
}
