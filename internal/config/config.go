package config

import (
	"os"
	"time"
)

type Config struct {
	Port string

	// Auth. Empty means the viewer is open.
	APIKey string

	// synctex invocation
	SynctexBin     string
	SynctexTimeout time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("REFMAP_API_KEY"),

		SynctexBin:     envOr("SYNCTEX_BIN", "synctex"),
		SynctexTimeout: envDuration("SYNCTEX_TIMEOUT", 10*time.Second),
	}

	if cfg.SynctexTimeout <= 0 {
		cfg.SynctexTimeout = 10 * time.Second
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
