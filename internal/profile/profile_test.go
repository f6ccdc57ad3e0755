package profile

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Data: dir}
	require.NoError(t, p.Validate())

	assert.Equal(t, "sqlite", p.Driver)
	assert.Equal(t, DefaultPort, p.Port)
	assert.Equal(t, filepath.Join(dir, "confidant_dev.db"), p.DSN)
	assert.Equal(t, DefaultAIBaseURL, p.AIBaseURL)
	assert.Equal(t, DefaultAIModel, p.AIModel)
	assert.Equal(t, 20, p.HistoryWindow)
	assert.Equal(t, 20, p.SummaryInterval)
	assert.Equal(t, DefaultSummaryWorkers, p.SummaryWorkers)
	assert.Equal(t, 60*time.Second, p.CompletionTimeout)
	assert.Equal(t, "text", p.LogFormat)
	assert.True(t, p.IsDev())
}

func TestValidateModeAndDriver(t *testing.T) {
	t.Run("unknown mode falls back to demo", func(t *testing.T) {
		p := &Profile{Mode: "staging", Data: t.TempDir()}
		require.NoError(t, p.Validate())
		assert.Equal(t, "demo", p.Mode)
	})

	t.Run("unsupported driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", Data: t.TempDir()}
		require.Error(t, p.Validate())
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres"}
		require.Error(t, p.Validate())
	})

	t.Run("postgres keeps dsn", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres", DSN: "postgres://localhost/confidant"}
		require.NoError(t, p.Validate())
		assert.Equal(t, "postgres://localhost/confidant", p.DSN)
		assert.False(t, p.IsDev())
	})

	t.Run("missing data dir", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: filepath.Join(t.TempDir(), "missing")}
		require.Error(t, p.Validate())
	})

	t.Run("burst follows rate limit", func(t *testing.T) {
		p := &Profile{Mode: "dev", Data: t.TempDir(), RateLimit: 30}
		require.NoError(t, p.Validate())
		assert.Equal(t, 30, p.RateBurst)
	})
}

func TestFromEnvLegacyKeys(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-legacy")
	t.Setenv("AI_MODEL", "mistral/legacy")
	t.Setenv("JWT_SECRET", "legacy-secret")
	t.Setenv("PORT", "5001")

	t.Run("fills unset fields", func(t *testing.T) {
		p := &Profile{}
		p.FromEnv()
		assert.Equal(t, "sk-or-legacy", p.AIAPIKey)
		assert.Equal(t, "mistral/legacy", p.AIModel)
		assert.Equal(t, "legacy-secret", p.JWTSecret)
		assert.Equal(t, 5001, p.Port)
		assert.True(t, p.IsAIConfigured())
	})

	t.Run("explicit values win", func(t *testing.T) {
		p := &Profile{AIAPIKey: "sk-or-new", Port: 8081}
		p.FromEnv()
		assert.Equal(t, "sk-or-new", p.AIAPIKey)
		assert.Equal(t, 8081, p.Port)
	})
}
