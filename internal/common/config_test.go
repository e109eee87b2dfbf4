package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 60*time.Second, cfg.AI.ProcessingTimeout())
	assert.Equal(t, 3, cfg.Pipeline.MaxRetryAttempts)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	assert.True(t, cfg.Tasks.HighValueThreshold.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 1, cfg.Tasks.DueDays.UrgentCritical)
	assert.Equal(t, 30, cfg.Tasks.DueDays.Strategic)
	assert.Equal(t, 4, cfg.Tasks.HourBaselines["Financial"])
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Watch.Concurrency)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propertyflow.toml")
	content := `
[watch]
intake_dir = "/srv/intake"
concurrency = 8

[pipeline]
max_retry_attempts = 5

[tasks]
high_value_threshold = "2500"

[tasks.due_days]
urgent_critical = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/intake", cfg.Watch.IntakeDir)
	assert.Equal(t, 8, cfg.Watch.Concurrency)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetryAttempts)
	assert.True(t, cfg.Tasks.HighValueThreshold.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 2, cfg.Tasks.DueDays.UrgentCritical)
	// Untouched sections keep their defaults.
	assert.Equal(t, "./data/processed", cfg.Watch.ProcessedDir)
	assert.Equal(t, 3, cfg.AI.MaxUpstreamRetries)
}

func TestLoadConfigRejectsInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propertyflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nretry_backoff = \"soon\"\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "propertyflow.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage]\nbackend = \"mysql\"\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestProcessingTimeoutEnvOverride(t *testing.T) {
	t.Setenv("AI_PROCESSING_TIMEOUT", "1500")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.AI.ProcessingTimeout())
}

func TestProcessingTimeoutEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("AI_PROCESSING_TIMEOUT", "soonish")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.AI.ProcessingTimeout())
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, Duration("5s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("bogus", time.Minute))
}
