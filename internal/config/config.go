package config

import (
	"fmt"
	"os"
	"strconv"

	"artist-tracker/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// SpDC is the session cookie used by the token endpoint; nothing can be
	// fetched without it.
	SpDC string

	// TOTPVersionPin optionally forces one secret version instead of
	// newest-first selection. Zero means no pin.
	TOTPVersionPin int

	UserAgent string

	DataDir       string
	CitiesPath    string
	ArtistIDsPath string

	MaxConcurrent int
	MaxAttempts   int
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		SpDC:          getEnv("SP_DC", ""),
		UserAgent:     getEnv("SP_USER_AGENT", ""),
		DataDir:       getEnv("DATA_DIR", "public/data"),
		CitiesPath:    getEnv("CITIES_PATH", "public/cities.json"),
		ArtistIDsPath: getEnv("ARTIST_IDS_PATH", "artist_ids.txt"),
		MaxConcurrent: getEnvInt("MAX_CONCURRENT_REQUESTS", constants.DefaultMaxConcurrentRequests),
		MaxAttempts:   getEnvInt("MAX_RETRIES", constants.DefaultMaxAttempts),
	}

	if pin := os.Getenv("SP_TOTP_VERSION"); pin != "" {
		v, err := strconv.Atoi(pin)
		if err != nil || v <= 0 {
			logger.Error().Str("value", pin).Msg("invalid SP_TOTP_VERSION, ignoring override")
		} else {
			cfg.TOTPVersionPin = v
		}
	}

	if cfg.SpDC == "" {
		return nil, fmt.Errorf("SP_DC is required")
	}
	if cfg.MaxConcurrent <= 0 || cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("concurrency and retry settings must be positive")
	}

	logger.Info().
		Str("data_dir", cfg.DataDir).
		Int("max_concurrent", cfg.MaxConcurrent).
		Int("max_attempts", cfg.MaxAttempts).
		Int("totp_version_pin", cfg.TOTPVersionPin).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
