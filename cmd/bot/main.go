package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"media-studio/internal/catalog"
	"media-studio/internal/config"
	"media-studio/internal/design"
	"media-studio/internal/director"
	"media-studio/internal/gemini"
	"media-studio/internal/handlers"
	"media-studio/internal/httpclient"
	"media-studio/internal/mediagroup"
	"media-studio/internal/session"
	"media-studio/internal/studio"
	"media-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		logger.Error("catalog load failed", "err", err)
		os.Exit(1)
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	gem := gemini.New(gemini.Options{
		APIKey:            cfg.GeminiAPIKey,
		BaseURL:           cfg.GeminiBaseURL,
		APIVersion:        cfg.GeminiAPIVersion,
		Model:             cfg.GeminiModel,
		RequestsPerSecond: cfg.GeminiRPS,
		HTTPClient:        httpClient,
		Logger:            logger,
	})

	// The suggestion cache is shared by every chat.
	dir := director.New(director.Options{
		Model:         gem,
		SuggestionTTL: cfg.SuggestionTTL,
		Logger:        logger,
	})

	sessions := session.NewStore(session.Options{
		NewStudio: func() *studio.Studio {
			return studio.New(studio.Options{
				Catalog:     cat,
				Store:       design.NewStore(design.Default(time.Now())),
				Director:    dir,
				BrandPrefix: cfg.BrandPrefix,
				MaxHistory:  cfg.MaxHistory,
				Logger:      logger,
			})
		},
	})

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Sessions: sessions,
		Logger:   logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onGroupFlush := func(group mediagroup.Group) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleMediaGroup(reqCtx, group)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onGroupFlush,
	})
	defer aggregator.Stop()
	handler.SetMediaGroupAggregator(aggregator)

	go pruneSessions(ctx, sessions, cfg.SessionIdle, logger)

	logger.Info("bot started", "username", tg.Username(), "model", gem.Model(), "products", len(cat.Products()))

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

func pruneSessions(ctx context.Context, sessions *session.Store, idle time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(idle); n > 0 {
				logger.Info("idle sessions pruned", "count", n, "active", sessions.Len())
			}
		}
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
