package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4 bool

	MediaGroupDebounce time.Duration
	MaxConcurrent      int
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	SessionIdle        time.Duration

	GeminiBaseURL    string
	GeminiAPIVersion string
	GeminiModel      string
	GeminiRPS        float64

	WebAddr       string
	CatalogFile   string
	BrandPrefix   string
	MaxHistory    int
	SuggestionTTL time.Duration
}

// Load reads the environment. Keys required only by one binary are checked
// with the Require* methods.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		SessionIdle:        time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 120)) * time.Minute,
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiModel:        strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.0-flash")),
		GeminiRPS:          getEnvFloat("GEMINI_RPS", 1),
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		CatalogFile:        strings.TrimSpace(os.Getenv("CATALOG_FILE")),
		BrandPrefix:        getEnv("BRAND_PREFIX", "RecipeLabs"),
		MaxHistory:         getEnvInt("STUDIO_MAX_HISTORY", 50),
		SuggestionTTL:      time.Duration(getEnvInt("SUGGESTION_CACHE_MINUTES", 10)) * time.Minute,
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxHistory < 1 {
		cfg.MaxHistory = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.SessionIdle <= 0 {
		cfg.SessionIdle = 2 * time.Hour
	}
	if cfg.SuggestionTTL <= 0 {
		cfg.SuggestionTTL = 10 * time.Minute
	}
	if cfg.GeminiRPS < 0 {
		cfg.GeminiRPS = 0
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	switch {
	case c.TelegramToken == "":
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	case c.GeminiAPIKey == "":
		return errors.New("GEMINI_API_KEY is required")
	}
	return nil
}

// HasGemini reports whether the model-backed paths can run.
func (c Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
