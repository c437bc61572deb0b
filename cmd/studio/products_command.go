package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"media-studio/internal/compositor"
)

func newProductsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "products",
		Short: "List output formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(ctx.catalog.Products()))
			for _, p := range ctx.catalog.Products() {
				w, h := compositor.Dimensions(p.AspectRatio)
				rows = append(rows, []string{
					p.ID,
					p.Icon + " " + p.Name,
					string(p.AspectRatio),
					fmt.Sprintf("%dx%d", w, h),
					p.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Ratio", "Size", "Description"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
