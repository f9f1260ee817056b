// Package config loads process configuration from the environment. A .env
// file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreBigQuery = "bigquery"
	StoreMemory   = "memory"
)

type Config struct {
	// HTTP server
	Port     string
	APIRoot  string
	APIToken string // bearer token; empty leaves the API open

	// Google Cloud
	GCPProject  string
	BQDataset   string
	GCSBucket   string
	Store       string
	GeminiModel string

	// Reminders
	DiscordWebhook string
	ReminderHour   int
	ReminderMinute int

	// Email scanning
	GmailCredentials string
	GmailToken       string

	// Bank feed
	BalanceFile       string
	NordigenSecretID  string
	NordigenSecretKey string
	NordigenAccountID string

	// Notion sync
	NotionToken string
	NotionDBID  string

	LogLevel string

	// Client
	APIURL string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		APIRoot:           "/" + strings.Trim(getEnv("API_ROOT", "/api"), "/"),
		APIToken:          getEnv("API_TOKEN", ""),
		GCPProject:        getEnv("GCP_PROJECT", ""),
		BQDataset:         getEnv("BQ_DATASET", "finance"),
		GCSBucket:         getEnv("GCS_BUCKET", ""),
		Store:             strings.ToLower(getEnv("STORE", StoreMemory)),
		GeminiModel:       getEnv("GEMINI_MODEL", ""),
		DiscordWebhook:    getEnv("DISCORD_WEBHOOK", ""),
		GmailCredentials:  getEnv("GMAIL_CREDENTIALS", ""),
		GmailToken:        getEnv("GMAIL_TOKEN", ""),
		BalanceFile:       getEnv("BALANCE_FILE", ""),
		NordigenSecretID:  getEnv("NORDIGEN_SECRET_ID", ""),
		NordigenSecretKey: getEnv("NORDIGEN_SECRET_KEY", ""),
		NordigenAccountID: getEnv("NORDIGEN_ACCOUNT_ID", ""),
		NotionToken:       getEnv("NOTION_TOKEN", ""),
		NotionDBID:        getEnv("NOTION_DB_ID", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		APIURL:            strings.TrimSuffix(getEnv("API_URL", "http://localhost:8080/api"), "/"),
	}

	var err error
	if cfg.ReminderHour, err = getInt("REMINDER_HOUR", 10, 0, 23); err != nil {
		return nil, err
	}
	if cfg.ReminderMinute, err = getInt("REMINDER_MINUTE", 0, 0, 59); err != nil {
		return nil, err
	}
	if cfg.Store != StoreBigQuery && cfg.Store != StoreMemory {
		return nil, fmt.Errorf("config: STORE must be %q or %q, got %q", StoreBigQuery, StoreMemory, cfg.Store)
	}
	return cfg, nil
}

// ValidateServer checks the settings cmd/api cannot run without.
func (c *Config) ValidateServer() error {
	if c.Store == StoreBigQuery && c.GCPProject == "" {
		return fmt.Errorf("GCP_PROJECT is required when STORE=%s", StoreBigQuery)
	}
	return nil
}

// ValidateMigrate checks the settings for schema migrations.
func (c *Config) ValidateMigrate() error {
	if c.GCPProject == "" {
		return fmt.Errorf("GCP_PROJECT is required")
	}
	if c.BQDataset == "" {
		return fmt.Errorf("BQ_DATASET is required")
	}
	return nil
}

// ValidateNotion checks the settings for the Notion sync.
func (c *Config) ValidateNotion() error {
	if c.NotionToken == "" {
		return fmt.Errorf("NOTION_TOKEN is required")
	}
	if c.NotionDBID == "" {
		return fmt.Errorf("NOTION_DB_ID is required")
	}
	return nil
}

// GmailEnabled reports whether email scanning is configured.
func (c *Config) GmailEnabled() bool {
	return c.GmailCredentials != "" && c.GmailToken != ""
}

// NordigenEnabled reports whether the live bank feed is configured.
func (c *Config) NordigenEnabled() bool {
	return c.NordigenSecretID != "" && c.NordigenSecretKey != "" && c.NordigenAccountID != ""
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue, lo, hi int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("config: %s must be an integer in [%d, %d], got %q", key, lo, hi, raw)
	}
	return v, nil
}
