// Package config reads the client configuration from the environment,
// with an optional .env file.
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface of the client.
type Config struct {
	// APIURL is the Postify API base URL, e.g. https://api.postify.example.
	APIURL string
	// DataDir holds the credential database.
	DataDir string
	// ListenAddr is where the local web front binds.
	ListenAddr string
}

// Load reads .env (when present) and the environment. POSTIFY_API_URL
// is the one required setting.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		APIURL:     os.Getenv("POSTIFY_API_URL"),
		DataDir:    os.Getenv("POSTIFY_DATA_DIR"),
		ListenAddr: os.Getenv("POSTIFY_LISTEN_ADDR"),
	}
	if cfg.APIURL == "" {
		return nil, errors.New("POSTIFY_API_URL environment variable required")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "localhost:8975"
	}
	return cfg, nil
}
