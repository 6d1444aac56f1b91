package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kgchat/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:5000", cfg.BaseURL)
	assert.Equal(t, 5, cfg.RetrievalK)
	assert.Equal(t, 200, cfg.MaxRows)
	assert.Equal(t, 30*time.Second, cfg.IdleWarn)
	assert.Equal(t, 5*time.Minute, cfg.StreamCeiling)
	assert.Equal(t, "kgchat.log", cfg.LogFile)
	assert.False(t, cfg.Debug)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("KGCHAT_BASE_URL", "http://kg.internal:8080")
	t.Setenv("KGCHAT_RETRIEVAL_K", "3")
	t.Setenv("KGCHAT_STREAM_CEILING", "90s")
	t.Setenv("KGCHAT_DEBUG", "true")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://kg.internal:8080", cfg.BaseURL)
	assert.Equal(t, 3, cfg.RetrievalK)
	assert.Equal(t, 90*time.Second, cfg.StreamCeiling)
	assert.True(t, cfg.Debug)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Run("non-positive retrieval k", func(t *testing.T) {
		t.Setenv("KGCHAT_RETRIEVAL_K", "0")
		_, err := config.Load()
		assert.Error(t, err)
	})

	t.Run("idle warn above the ceiling", func(t *testing.T) {
		t.Setenv("KGCHAT_IDLE_WARN", "10m")
		_, err := config.Load()
		assert.Error(t, err)
	})
}
