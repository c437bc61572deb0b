package main

import (
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"media-studio/internal/catalog"
	"media-studio/internal/config"
	"media-studio/internal/director"
	"media-studio/internal/gemini"
	"media-studio/internal/httpclient"
)

// commandContext lazily loads what the subcommands share.
type commandContext struct {
	catalogFlag *string
	verbose     *bool

	once    sync.Once
	cfg     config.Config
	catalog *catalog.Catalog
	err     error
}

func newCommandContext(catalogFlag *string, verbose *bool) *commandContext {
	return &commandContext{catalogFlag: catalogFlag, verbose: verbose}
}

func (c *commandContext) load() error {
	c.once.Do(func() {
		c.cfg, c.err = config.Load()
		if c.err != nil {
			return
		}
		path := c.cfg.CatalogFile
		if *c.catalogFlag != "" {
			path = *c.catalogFlag
		}
		c.catalog, c.err = catalog.Load(path)
	})
	return c.err
}

func (c *commandContext) logger(out io.Writer) *slog.Logger {
	if !*c.verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// model returns nil when no API key is configured.
func (c *commandContext) model(logger *slog.Logger) director.Model {
	if !c.cfg.HasGemini() {
		return nil
	}
	return gemini.New(gemini.Options{
		APIKey:     c.cfg.GeminiAPIKey,
		BaseURL:    c.cfg.GeminiBaseURL,
		APIVersion: c.cfg.GeminiAPIVersion,
		Model:      c.cfg.GeminiModel,
		HTTPClient: httpclient.New(httpclient.Options{
			PreferIPv4: c.cfg.PreferIPv4,
			Timeout:    c.cfg.HTTPTimeout,
		}),
		RequestsPerSecond: c.cfg.GeminiRPS,
		Logger:            logger,
	})
}

func newRootCommand() *cobra.Command {
	var catalogFlag string
	var verbose bool

	ctx := newCommandContext(&catalogFlag, &verbose)

	rootCmd := &cobra.Command{
		Use:           "studio",
		Short:         "Render branded marketing assets from product photos",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "Product catalog YAML (default: built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log studio activity to stderr")

	rootCmd.AddCommand(newProductsCommand(ctx))
	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))

	return rootCmd
}
