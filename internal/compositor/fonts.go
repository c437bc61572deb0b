package compositor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
)

type fontClass int

const (
	classSans fontClass = iota
	classMono
	classDisplay
)

type fontWeight int

const (
	weightRegular fontWeight = iota
	weightMedium
	weightBold
)

var fontFiles = map[string][]byte{
	"goregular":   goregular.TTF,
	"gomedium":    gomedium.TTF,
	"gobold":      gobold.TTF,
	"gomono":      gomono.TTF,
	"gomonobold":  gomonobold.TTF,
	"gosmallcaps": gosmallcaps.TTF,
}

// Brand typefaces are not shipped; each family maps onto the embedded Go fonts.
var familyClasses = map[string]fontClass{
	"orbitron":      classDisplay,
	"space grotesk": classMono,
	"space mono":    classMono,
	"rajdhani":      classMono,
	"courier":       classMono,
	"monospace":     classMono,
}

var (
	fontsMu sync.Mutex
	parsed  = map[string]*truetype.Font{}
)

func loadFont(name string) (*truetype.Font, error) {
	fontsMu.Lock()
	defer fontsMu.Unlock()

	if f, ok := parsed[name]; ok {
		return f, nil
	}
	ttf, ok := fontFiles[name]
	if !ok {
		return nil, fmt.Errorf("unknown font %q", name)
	}
	f, err := truetype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font %q: %w", name, err)
	}
	parsed[name] = f
	return f, nil
}

func classify(family string) fontClass {
	family = strings.ToLower(strings.TrimSpace(family))
	if c, ok := familyClasses[family]; ok {
		return c
	}
	if strings.Contains(family, "mono") {
		return classMono
	}
	return classSans
}

func parseWeight(weight string) fontWeight {
	switch strings.ToLower(strings.TrimSpace(weight)) {
	case "light", "thin", "regular", "normal", "400", "300":
		return weightRegular
	case "medium", "semibold", "semi-bold", "500", "600":
		return weightMedium
	default:
		return weightBold
	}
}

func fontName(family, weight string) string {
	w := parseWeight(weight)
	switch classify(family) {
	case classDisplay:
		if w == weightBold {
			return "gobold"
		}
		return "gosmallcaps"
	case classMono:
		if w == weightBold {
			return "gomonobold"
		}
		return "gomono"
	default:
		switch w {
		case weightRegular:
			return "goregular"
		case weightMedium:
			return "gomedium"
		default:
			return "gobold"
		}
	}
}

func newFace(name string, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, &SurfaceError{Op: fmt.Sprintf("font size %.2f", size)}
	}
	f, err := loadFont(name)
	if err != nil {
		return nil, &SurfaceError{Op: "load font", Err: err}
	}
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingNone}), nil
}

// trackingEm converts a letter spacing descriptor into extra advance per glyph, in em.
func trackingEm(spacing string) float64 {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(spacing), " ", "-")) {
	case "tight":
		return -0.02
	case "wide":
		return 0.08
	case "ultra-wide", "ultrawide", "extra-wide":
		return 0.2
	default:
		return 0
	}
}
