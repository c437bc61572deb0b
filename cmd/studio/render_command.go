package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"media-studio/internal/compositor"
	"media-studio/internal/design"
)

type renderFlags struct {
	product  string
	in       string
	out      string
	title    string
	vibe     string
	palette  string
	date     string
	location string
	position string
	size     string
	overlay  string
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one photo locally without the AI director",
		RunE: func(cmd *cobra.Command, args []string) error {
			product, ok := ctx.catalog.Lookup(f.product)
			if !ok {
				return fmt.Errorf("unknown product %q", f.product)
			}
			delta, err := f.delta()
			if err != nil {
				return err
			}

			src, err := os.ReadFile(f.in)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			out, err := compositor.Render(src, product, f.spec(time.Now()), delta)
			if err != nil {
				return err
			}
			if err := os.WriteFile(f.out, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			w, h := compositor.Dimensions(product.AspectRatio)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s %dx%d (%d bytes)\n", f.out, product.Name, w, h, len(out))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.product, "product", "p", "post", "Product id")
	flags.StringVarP(&f.in, "in", "i", "", "Source image")
	flags.StringVarP(&f.out, "out", "o", "", "Output PNG")
	flags.StringVar(&f.title, "title", "", "Headline (default: brand name)")
	flags.StringVar(&f.vibe, "vibe", "", "Vibe")
	flags.StringVar(&f.palette, "palette", "", "Color palette")
	flags.StringVar(&f.date, "date", "", "Date line; enables the date")
	flags.StringVar(&f.location, "location", "", "Location")
	flags.StringVar(&f.position, "position", "", "Text position: top, center, bottom")
	flags.StringVar(&f.size, "size", "", "Text size: larger, smaller, same")
	flags.StringVar(&f.overlay, "overlay", "", "Overlay: darker, lighter, same")
	_ = cmd.MarkFlagRequired("in")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func (f renderFlags) spec(now time.Time) design.Spec {
	p := design.Patch{
		EventTitle:   design.String(f.title),
		Vibe:         design.String(f.vibe),
		ColorPalette: design.String(f.palette),
		Location:     design.String(f.location),
	}
	if f.date != "" {
		p.Date = design.String(f.date)
		p.IncludeDate = design.Bool(true)
	}
	return design.Default(now).Apply(p)
}

// delta returns nil when no layout flag is set.
func (f renderFlags) delta() (*compositor.EditDelta, error) {
	d := compositor.EditDelta{
		TextPosition:   strings.ToLower(f.position),
		TextSize:       strings.ToLower(f.size),
		OverlayOpacity: strings.ToLower(f.overlay),
	}
	if err := oneOf("position", d.TextPosition, compositor.PositionTop, compositor.PositionCenter, compositor.PositionBottom); err != nil {
		return nil, err
	}
	if err := oneOf("size", d.TextSize, compositor.SizeLarger, compositor.SizeSmaller, compositor.SizeSame); err != nil {
		return nil, err
	}
	if err := oneOf("overlay", d.OverlayOpacity, compositor.OverlayDarker, compositor.OverlayLighter, compositor.OverlaySame); err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

func oneOf(name, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("invalid --%s %q (want %s)", name, value, strings.Join(allowed, ", "))
}
