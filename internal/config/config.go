package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Host page configuration
	SelectorProfile string // optional YAML selector profile path
	PageSnapshot    string // optional HTML file to load as the initial page

	// Settings store configuration
	SettingsPath     string
	StorageAccount   string // when set, settings roam through blob storage
	StorageContainer string

	// Suggestion pipeline configuration
	FallbackMode string // "surface" or "local"

	// Digest configuration
	DigestSchedule   string // "daily", "weekly" or "" (disabled)
	DigestWebhookURL string
	DigestEmail      string
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		SelectorProfile: getEnv("SELECTOR_PROFILE", ""),
		PageSnapshot:    getEnv("PAGE_SNAPSHOT", ""),

		SettingsPath:     getEnv("SETTINGS_PATH", "replypilot-settings.json"),
		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "replypilot"),

		FallbackMode: getEnv("FALLBACK_MODE", "surface"),

		DigestSchedule:   getEnv("DIGEST_SCHEDULE", ""),
		DigestWebhookURL: getEnv("DIGEST_WEBHOOK_URL", ""),
		DigestEmail:      getEnv("DIGEST_EMAIL", ""),
		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.FallbackMode != "surface" && c.FallbackMode != "local" {
		return fmt.Errorf("FALLBACK_MODE must be 'surface' or 'local'")
	}

	if c.DigestSchedule != "" && c.DigestSchedule != "daily" && c.DigestSchedule != "weekly" {
		return fmt.Errorf("DIGEST_SCHEDULE must be 'daily', 'weekly' or empty")
	}

	if c.DigestSchedule != "" && c.DigestWebhookURL == "" && c.DigestEmail == "" {
		return fmt.Errorf("at least one digest channel must be configured (DIGEST_WEBHOOK_URL or DIGEST_EMAIL)")
	}

	if c.DigestEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when DIGEST_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
