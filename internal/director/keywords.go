package director

import (
	"strings"

	"media-studio/internal/compositor"
	"media-studio/internal/design"
)

const (
	darkPalette  = "Forest Green Dominant"
	lightPalette = "Lemon Yellow Dominant"
)

// ClassifyEdit maps an instruction onto spec overrides and a layout delta
// using fixed keywords. Unmatched text yields zero values.
func ClassifyEdit(instruction string) (design.Patch, compositor.EditDelta) {
	p := strings.ToLower(strings.TrimSpace(instruction))

	var patch design.Patch
	var delta compositor.EditDelta
	if p == "" {
		return patch, delta
	}

	switch {
	case strings.Contains(p, "darker"):
		delta.OverlayOpacity = compositor.OverlayDarker
		patch.ColorPalette = design.String(darkPalette)
	case containsAny(p, "brighter", "lighter"):
		delta.OverlayOpacity = compositor.OverlayLighter
		patch.ColorPalette = design.String(lightPalette)
	}

	switch {
	case containsAny(p, "center", "centre"):
		delta.TextPosition = compositor.PositionCenter
	case strings.Contains(p, "top"):
		delta.TextPosition = compositor.PositionTop
	case strings.Contains(p, "bottom"):
		delta.TextPosition = compositor.PositionBottom
	}

	switch {
	case containsAny(p, "bigger", "larger"):
		delta.TextSize = compositor.SizeLarger
	case strings.Contains(p, "smaller"):
		delta.TextSize = compositor.SizeSmaller
	}

	switch {
	case containsAny(p, "remove date", "no date"):
		patch.IncludeDate = design.Bool(false)
	case containsAny(p, "add date", "include date"):
		patch.IncludeDate = design.Bool(true)
	}

	return patch, delta
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
