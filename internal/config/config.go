// Package config loads application configuration from the environment,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup. Values are read
// once in Load; nothing re-reads the environment at request time.
type Config struct {
	Port      int    // HTTP listen port
	DBPath    string // path to the SQLite database file
	JWTSecret string // HMAC secret for identity tokens (required)
	UploadDir string // directory for uploaded images, served under /uploads/

	// Geocoder settings. The user agent is required by Nominatim's usage
	// policy; the base URL is overridable so tests and self-hosted
	// instances can point elsewhere.
	GeocoderBaseURL   string
	GeocoderUserAgent string

	// GitHub OAuth app credentials. All three empty → the OAuth routes
	// are not registered and email/password remains the only login path.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present (never required — real
// deployments set real environment variables).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvAsInt("PORT", 8080),
		DBPath:            getEnv("DB_PATH", "data/placeshare.db"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		UploadDir:         getEnv("UPLOAD_DIR", "uploads"),
		GeocoderBaseURL:   getEnv("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: getEnv("GEOCODER_USER_AGENT", "placeshare/1.0"),

		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GitHubCallbackURL:  getEnv("GITHUB_CALLBACK_URL", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET is required (try: openssl rand -hex 32)")
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

// GitHubEnabled reports whether OAuth login should be wired up.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
