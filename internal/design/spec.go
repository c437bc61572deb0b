package design

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

const (
	BrandName = "Recipe Labs"

	DefaultFontFamily    = "Orbitron"
	DefaultFontWeight    = "Bold"
	DefaultLetterSpacing = "Normal"

	dateLayout = "Jan 2, 2006"
)

// Spec holds the stylistic parameters applied to every render.
type Spec struct {
	EventTitle      string `json:"eventTitle,omitempty"`
	ColorPalette    string `json:"colorPalette,omitempty"`
	Vibe            string `json:"vibe,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	LetterSpacing   string `json:"letterSpacing,omitempty"`
	Date            string `json:"date,omitempty"`
	IncludeDate     bool   `json:"includeDate"`
	Location        string `json:"location,omitempty"`
	AdditionalNotes string `json:"additionalNotes,omitempty"`
}

func Default(now time.Time) Spec {
	return Spec{
		Date:          strings.ToUpper(now.Format(dateLayout)),
		IncludeDate:   false,
		FontFamily:    DefaultFontFamily,
		FontWeight:    DefaultFontWeight,
		LetterSpacing: DefaultLetterSpacing,
	}
}

// Normalize trims every text field and restores the font defaults.
func (s Spec) Normalize() Spec {
	s.EventTitle = strings.TrimSpace(s.EventTitle)
	s.ColorPalette = strings.TrimSpace(s.ColorPalette)
	s.Vibe = strings.TrimSpace(s.Vibe)
	s.FontFamily = strings.TrimSpace(s.FontFamily)
	s.FontWeight = strings.TrimSpace(s.FontWeight)
	s.LetterSpacing = strings.TrimSpace(s.LetterSpacing)
	s.Date = strings.TrimSpace(s.Date)
	s.Location = strings.TrimSpace(s.Location)
	s.AdditionalNotes = strings.TrimSpace(s.AdditionalNotes)

	if s.FontFamily == "" {
		s.FontFamily = DefaultFontFamily
	}
	if s.FontWeight == "" {
		s.FontWeight = DefaultFontWeight
	}
	if s.LetterSpacing == "" {
		s.LetterSpacing = DefaultLetterSpacing
	}
	return s
}

func (s Spec) Title() string {
	if t := strings.TrimSpace(s.EventTitle); t != "" {
		return t
	}
	return BrandName
}

// Apply merges p into s. An empty string clears the optional text fields;
// the title and font fields ignore it.
func (s Spec) Apply(p Patch) Spec {
	setString(&s.EventTitle, p.EventTitle)
	setOptional(&s.ColorPalette, p.ColorPalette)
	setOptional(&s.Vibe, p.Vibe)
	setString(&s.FontFamily, p.FontFamily)
	setString(&s.FontWeight, p.FontWeight)
	setString(&s.LetterSpacing, p.LetterSpacing)
	setOptional(&s.Date, p.Date)
	setOptional(&s.Location, p.Location)
	setOptional(&s.AdditionalNotes, p.AdditionalNotes)
	if p.IncludeDate != nil {
		s.IncludeDate = *p.IncludeDate
	}
	return s.Normalize()
}

func (s Spec) JSON() string {
	b, _ := json.Marshal(s)
	return string(b)
}

// Fingerprint is a short stable digest used as a cache key component.
func (s Spec) Fingerprint() string {
	sum := sha256.Sum256([]byte(s.Normalize().JSON()))
	return hex.EncodeToString(sum[:8])
}

func setString(dst *string, v *string) {
	if v == nil {
		return
	}
	if t := strings.TrimSpace(*v); t != "" {
		*dst = t
	}
}

func setOptional(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// Patch is a partial Spec; nil fields leave the target untouched.
type Patch struct {
	EventTitle      *string `json:"eventTitle,omitempty"`
	ColorPalette    *string `json:"colorPalette,omitempty"`
	Vibe            *string `json:"vibe,omitempty"`
	FontFamily      *string `json:"fontFamily,omitempty"`
	FontWeight      *string `json:"fontWeight,omitempty"`
	LetterSpacing   *string `json:"letterSpacing,omitempty"`
	Date            *string `json:"date,omitempty"`
	IncludeDate     *bool   `json:"includeDate,omitempty"`
	Location        *string `json:"location,omitempty"`
	AdditionalNotes *string `json:"additionalNotes,omitempty"`
}

func (p Patch) IsZero() bool {
	return p == Patch{}
}

func String(v string) *string { return &v }

func Bool(v bool) *bool { return &v }
