package director

import (
	"fmt"
	"strings"

	"media-studio/internal/catalog"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

var brandIdentity = []string{
	"Modern, tech-forward, creative, professional.",
	"Fresh Lemonade palette: Lemon Yellow #F5D547, Forest Green #4A7C4E.",
	`Primary text rule: always use "Recipe Labs" or "RL" as the dominant title.`,
}

func negotiatorSystem(current design.Spec) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("ACT AS THE RECIPE LABS CREATIVE DIRECTOR.\n")
	b.WriteString("You manage the master design spec shared by every render in the studio.\n\n")
	writeSection(&b, "BRAND IDENTITY", brandIdentity)
	b.WriteString("CURRENT SPEC: " + current.JSON() + "\n\n")
	writeSection(&b, "RULES", []string{
		"Respond as a high-level creative director: concise, professional.",
		"Return the full updated spec in updatedSpec; omit fields you do not change.",
		"Never replace the brand name as the primary title text.",
		"assistantResponse is one or two sentences confirming what changed.",
		"Return valid JSON only.",
	})
	return b.String()
}

func suggestionPrompt(product catalog.Product, current design.Spec) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString("ACT AS THE RECIPE LABS CREATIVE DIRECTOR.\n")
	b.WriteString(fmt.Sprintf("Generate %d concise design protocols for: %q.\n", maxSuggestions, product.Name))
	b.WriteString(fmt.Sprintf("Format: %s.\n", product.AspectRatio))
	if strings.TrimSpace(product.Description) != "" {
		b.WriteString("Product: " + product.Description + "\n")
	}
	b.WriteString("\n")
	writeSection(&b, "BRAND IDENTITY", brandIdentity)
	b.WriteString("CURRENT SPEC: " + current.JSON() + "\n\n")
	b.WriteString("Return valid JSON only. Keep descriptions concise.\n")
	return b.String()
}

func editPrompt(product catalog.Product, current design.Spec, instruction string) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("You are a Recipe Labs creative director analyzing a branded media asset for refinement.\n\n")
	b.WriteString(fmt.Sprintf("CURRENT IMAGE: a Recipe Labs branded %s rendered with this spec:\n", product.Name))
	b.WriteString(current.JSON() + "\n\n")
	b.WriteString(fmt.Sprintf("USER EDIT REQUEST: %q\n\n", instruction))
	b.WriteString("Analyze the image and the request. Return only the fields that should change; omit the rest.\n\n")
	writeSection(&b, "INTERPRETATION", []string{
		`"darker" = darker colors, overlayOpacity darker`,
		`"brighter" or "lighter" = lighter colors, overlayOpacity lighter`,
		`"move logo/text to <position>" = textPosition top, center or bottom`,
		`"bigger" or "smaller" text = textSize larger or smaller`,
		`"change font" = new fontFamily`,
		`"remove date" = includeDate false; "add date" = includeDate true`,
		`"more vibrant" = brighter colorPalette; "more subtle" = darker, lower opacity`,
		"fontWeight is one of Light, Regular, Bold, Black.",
		"letterSpacing is one of Tight, Normal, Wide, Ultra-Wide.",
	})
	b.WriteString("Return only valid JSON.\n")
	return b.String()
}

func directionPrompt(product catalog.Product, spec design.Spec, note string, withTemplate bool) string {
	var b strings.Builder
	b.Grow(1024)

	b.WriteString(fmt.Sprintf("Analyze this image and provide design instructions for a Recipe Labs branded %s.\n\n", product.Name))

	date := "No date"
	if spec.IncludeDate {
		d := spec.Date
		if d == "" {
			d = "TBD"
		}
		date = "Include date: " + d
	}
	vibe := spec.Vibe
	if vibe == "" {
		vibe = "Modern Tech Creative"
	}
	writeSection(&b, "DESIGN REQUIREMENTS", []string{
		`Primary text: "` + spec.Title() + `"`,
		"Brand colors: Lemon Yellow (#F5D547), Forest Green (#4A7C4E)",
		"Font: " + spec.FontFamily,
		date,
		"Style: " + vibe,
		"Aspect ratio: " + string(product.AspectRatio),
	})
	if product.BasePrompt != "" {
		b.WriteString("PRODUCT BRIEF: " + product.BasePrompt + "\n\n")
	}
	if note = strings.TrimSpace(note); note != "" {
		b.WriteString("ASSET NOTE: " + note + "\n\n")
	}
	if withTemplate {
		b.WriteString("The second image is a previously approved asset. Match its layout and mood.\n\n")
	}
	b.WriteString("Give a concise description of how to overlay Recipe Labs branding without obscuring the main subject.\n")
	b.WriteString("Focus on text placement, color usage and layout composition.\n")
	return b.String()
}

func writeSection(b *strings.Builder, title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString(title + ":\n")
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")
}

func specSchema() map[string]*gemini.Schema {
	return map[string]*gemini.Schema{
		"eventTitle":      gemini.String(),
		"colorPalette":    gemini.String(),
		"vibe":            gemini.String(),
		"fontFamily":      gemini.String(),
		"fontWeight":      gemini.String(),
		"letterSpacing":   gemini.String(),
		"date":            gemini.String(),
		"includeDate":     gemini.Boolean(),
		"location":        gemini.String(),
		"additionalNotes": gemini.String(),
	}
}

var negotiationSchema = gemini.Object(map[string]*gemini.Schema{
	"updatedSpec":       gemini.Object(specSchema()),
	"assistantResponse": gemini.String(),
}, "updatedSpec", "assistantResponse")

var suggestionSchema = gemini.Object(map[string]*gemini.Schema{
	"suggestions": gemini.Array(gemini.Object(map[string]*gemini.Schema{
		"title": gemini.String(),
		"spec": gemini.Object(map[string]*gemini.Schema{
			"eventTitle":    gemini.String(),
			"colorPalette":  gemini.String(),
			"vibe":          gemini.String(),
			"fontFamily":    gemini.String(),
			"fontWeight":    gemini.String(),
			"letterSpacing": gemini.String(),
		}, "eventTitle", "colorPalette", "vibe"),
	}, "title", "spec")),
}, "suggestions")

var editSchema = gemini.Object(map[string]*gemini.Schema{
	"eventTitle":      gemini.String(),
	"colorPalette":    gemini.String(),
	"vibe":            gemini.String(),
	"fontFamily":      gemini.String(),
	"fontWeight":      gemini.String(),
	"letterSpacing":   gemini.String(),
	"includeDate":     gemini.Boolean(),
	"textPosition":    gemini.Enum("top", "center", "bottom"),
	"textSize":        gemini.Enum("larger", "smaller", "same"),
	"overlayOpacity":  gemini.Enum("darker", "lighter", "same"),
	"additionalNotes": gemini.String(),
})
