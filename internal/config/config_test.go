package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_UsesDefaultsWithNoEnvOrFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 500, cfg.EventBatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.SourceWriterOpsCompleteCheckRetryInterval)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("ACCESSCOORD_LISTEN_ADDR", ":9090")
	t.Setenv("ACCESSCOORD_EVENT_BATCH_SIZE", "50")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 50, cfg.EventBatchSize)
}

func TestLoad_MissingConfigFileIsNotAnError(t *testing.T) {
	_, err := Load(os.TempDir() + "/does-not-exist-accesscoord.yaml")
	require.NoError(t, err)
}
