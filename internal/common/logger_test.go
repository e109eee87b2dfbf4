package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerReturnsSingleton(t *testing.T) {
	first := GetLogger()
	require.NotNil(t, first)
	assert.Equal(t, first, GetLogger())
}

func TestInitLoggerFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.Output = []string{"stdout"}

	logger := InitLogger(cfg)
	require.NotNil(t, logger)
	assert.Equal(t, logger, GetLogger(), "InitLogger must replace the global instance")

	// Must be usable end to end with structured fields.
	logger.Debug().Str("source_id", "report.csv").Int("attempt", 1).Msg("logger smoke check")
}
