package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	inTempDir(t)
	for _, k := range []string{"PORT", "API_ROOT", "STORE", "REMINDER_HOUR", "REMINDER_MINUTE", "BQ_DATASET", "API_URL"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "/api", cfg.APIRoot)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 10, cfg.ReminderHour)
	assert.Equal(t, 0, cfg.ReminderMinute)
	assert.Equal(t, "finance", cfg.BQDataset)
	assert.Equal(t, "http://localhost:8080/api", cfg.APIURL)
	assert.NoError(t, cfg.ValidateServer())
}

func TestLoadFromEnvFile(t *testing.T) {
	dir := inTempDir(t)
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("API_ROOT", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("NOTION_TOKEN=secret\nAPI_ROOT=v1/\n"), 0o600))
	// godotenv does not override variables already set; unset them for the load.
	require.NoError(t, os.Unsetenv("NOTION_TOKEN"))
	require.NoError(t, os.Unsetenv("API_ROOT"))
	t.Cleanup(func() {
		_ = os.Unsetenv("NOTION_TOKEN")
		_ = os.Unsetenv("API_ROOT")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.NotionToken)
	assert.Equal(t, "/v1", cfg.APIRoot)
	assert.ErrorContains(t, cfg.ValidateNotion(), "NOTION_DB_ID")
}

func TestLoadInvalid(t *testing.T) {
	inTempDir(t)
	tests := []struct {
		name, key, value, want string
	}{
		{"hour out of range", "REMINDER_HOUR", "24", "REMINDER_HOUR"},
		{"minute not a number", "REMINDER_MINUTE", "half", "REMINDER_MINUTE"},
		{"unknown store", "STORE", "postgres", "STORE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidateServerBigQuery(t *testing.T) {
	cfg := &Config{Store: StoreBigQuery}
	assert.ErrorContains(t, cfg.ValidateServer(), "GCP_PROJECT")
	cfg.GCPProject = "p"
	assert.NoError(t, cfg.ValidateServer())
}
