// Package config collects the environment knobs for the storefront binaries.
// A .env file in the working directory is honored for local development.
package config

import (
	"errors"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// DatabaseURL may be empty: the server then runs against the local
	// mirror alone (the purely local order service variant).
	DatabaseURL string

	// StateDir holds the mirror collection files.
	StateDir string

	MediaDir     string
	MediaBaseURL string

	KafkaBrokers []string

	JWTSecret string

	KitchenWebhookURL string

	// SeedFile points at a JSON array of products loaded into an empty
	// catalog at startup.
	SeedFile string
}

func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		Port:              envOr("PORT", "8080"),
		DatabaseURL:       os.Getenv("POSTGRES_URL"),
		StateDir:          envOr("STATE_DIR", "data"),
		MediaDir:          envOr("MEDIA_DIR", "media"),
		MediaBaseURL:      envOr("MEDIA_BASE_URL", "/media"),
		JWTSecret:         os.Getenv("AUTH_JWT_SECRET"),
		KitchenWebhookURL: os.Getenv("KITCHEN_WEBHOOK_URL"),
		SeedFile:          os.Getenv("PRODUCT_SEED_FILE"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("AUTH_JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
