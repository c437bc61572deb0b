package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"media-studio/internal/catalog"
	"media-studio/internal/config"
	"media-studio/internal/design"
	"media-studio/internal/director"
	"media-studio/internal/gemini"
	"media-studio/internal/httpclient"
	"media-studio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logger.Error("catalog load failed", "err", err)
		os.Exit(1)
	}

	var model director.Model
	if cfg.HasGemini() {
		model = gemini.New(gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			Model:      cfg.GeminiModel,
			HTTPClient: httpclient.New(httpclient.Options{
				PreferIPv4: cfg.PreferIPv4,
				Timeout:    cfg.HTTPTimeout,
			}),
			RequestsPerSecond: cfg.GeminiRPS,
			Logger:            logger,
		})
	} else {
		logger.Warn("GEMINI_API_KEY not set, running with local fallbacks only")
	}

	st := studio.New(studio.Options{
		Catalog: cat,
		Store:   design.NewStore(design.Default(time.Now())),
		Director: director.New(director.Options{
			Model:         model,
			SuggestionTTL: cfg.SuggestionTTL,
			Logger:        logger,
		}),
		BrandPrefix: cfg.BrandPrefix,
		MaxHistory:  cfg.MaxHistory,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           withLogging(newRouter(st, logger), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("web started", "addr", cfg.WebAddr, "model", model != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
