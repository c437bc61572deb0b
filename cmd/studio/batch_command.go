package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"media-studio/internal/design"
	"media-studio/internal/director"
	"media-studio/internal/studio"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		productID string
		dir       string
		outDir    string
		title     string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Render every image in a directory and export the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := ctx.catalog.Lookup(productID); !ok {
				return fmt.Errorf("unknown product %q", productID)
			}

			files, err := listImages(dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no images in %s", dir)
			}

			uploads := make([]studio.Upload, len(files))
			eg, _ := errgroup.WithContext(cmd.Context())
			eg.SetLimit(4)
			for i, path := range files {
				eg.Go(func() error {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					uploads[i] = studio.Upload{Data: data, MimeType: http.DetectContentType(data)}
					return nil
				})
			}
			if err := eg.Wait(); err != nil {
				return err
			}

			logger := ctx.logger(cmd.ErrOrStderr())
			st := studio.New(studio.Options{
				Catalog: ctx.catalog,
				Store:   design.NewStore(design.Default(time.Now())),
				Director: director.New(director.Options{
					Model:  ctx.model(logger),
					Logger: logger,
				}),
				BrandPrefix: ctx.cfg.BrandPrefix,
				Logger:      logger,
			})
			if title != "" {
				st.UpdateSpec(design.Patch{EventTitle: design.String(title)})
			}

			added := st.AddItems(uploads, productID)
			sum, err := st.SynthesizeAll(cmd.Context())
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			rows := make([][]string, 0, len(added))
			for i, a := range added {
				row := []string{a.ID, filepath.Base(files[i]), "", ""}
				cur, err := st.Asset(a.ID)
				if err != nil {
					row[2] = err.Error()
					rows = append(rows, row)
					continue
				}
				row[2] = string(cur.Status)
				if cur.Status != studio.StatusCompleted {
					row[3] = cur.Err
					rows = append(rows, row)
					continue
				}

				name, data, err := st.Export(a.ID)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, name)
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				row[3] = path
				rows = append(rows, row)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"ID", "Source", "Status", "Output"}, rows, nil))
			fmt.Fprintf(out, "%d completed, %d failed\n", sum.Completed, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d asset(s) failed", sum.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&productID, "product", "p", "post", "Product id")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory of source images")
	cmd.Flags().StringVarP(&outDir, "out", "o", "out", "Output directory")
	cmd.Flags().StringVar(&title, "title", "", "Headline for every asset")
	_ = cmd.MarkFlagRequired("dir")

	return cmd
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}
