package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config aggregates runtime configuration for the Homestead services.
type Config struct {
	Environment    string
	HTTPPort       int
	DatabaseURL    string
	DataStore      string
	LogLevel       string
	AllowedOrigins []string

	// SessionSecret signs the session cookie. Required.
	SessionSecret string

	// OIDC provider settings. Issuer, client ID and secret are required.
	OIDCIssuerURL    string
	OIDCClientID     string
	OIDCClientSecret string

	// Domains lists the externally reachable hostnames the provider may
	// redirect back to. The first entry is the primary domain.
	Domains []string

	// LocalDevHost is the hostname whose callback is used when an inbound
	// request's hostname is not in Domains. Only honored outside production.
	LocalDevHost string

	// PostLogoutURL is where the browser lands after logout when the
	// provider advertises no end-session endpoint.
	PostLogoutURL string
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/homestead_database_url")
	if err != nil {
		return Config{}, err
	}

	sessionSecret, err := getEnvOrFile("SESSION_SECRET", "/run/secrets/homestead_session_secret")
	if err != nil {
		return Config{}, err
	}

	clientSecret, err := getEnvOrFile("OIDC_CLIENT_SECRET", "/run/secrets/homestead_oidc_client_secret")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:      getEnv("APP_ENV", "development"),
		DatabaseURL:      databaseURL,
		DataStore:        strings.ToLower(getEnv("DATA_STORE", "memory")),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		AllowedOrigins:   parseCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:4200,http://localhost:8080")),
		SessionSecret:    strings.TrimSpace(sessionSecret),
		OIDCIssuerURL:    strings.TrimSpace(os.Getenv("OIDC_ISSUER_URL")),
		OIDCClientID:     strings.TrimSpace(os.Getenv("OIDC_CLIENT_ID")),
		OIDCClientSecret: strings.TrimSpace(clientSecret),
		Domains:          parseCSV(getEnv("DOMAINS", "localhost:8080")),
		LocalDevHost:     strings.TrimSpace(getEnv("LOCAL_DEV_HOST", "localhost:8080")),
		PostLogoutURL:    strings.TrimSpace(getEnv("POST_LOGOUT_URL", "/")),
	}

	portValue := getEnv("PORT", getEnv("HTTP_PORT", "8080"))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return Config{}, fmt.Errorf("invalid port %q: %w", portValue, err)
	}
	cfg.HTTPPort = port

	var missing []string
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if cfg.OIDCIssuerURL == "" {
		missing = append(missing, "OIDC_ISSUER_URL")
	}
	if cfg.OIDCClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}
	if cfg.OIDCClientSecret == "" {
		missing = append(missing, "OIDC_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: %s required", strings.Join(missing, ", "))
	}

	if cfg.DataStore == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}

	if cfg.IsProduction() && len(cfg.Domains) == 0 {
		return Config{}, fmt.Errorf("DOMAINS must list at least one hostname in production")
	}

	return cfg, nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if the in-memory repositories should be used.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsProduction reports whether the deployment runs with production settings.
// It governs the cookie Secure attribute and the dev-hostname callback fallback.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
