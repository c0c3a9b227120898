package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/contentstudio/aigateway/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.ListenAddr)
	assert.Equal(t, "gemini", cfg.PrimaryProvider)
	assert.True(t, cfg.EnableFallback)
	assert.Equal(t, "pollinations", cfg.ImageProvider)
	assert.Equal(t, 60, cfg.RateLimitRequests)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:3000")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv(config.EnvGroqAPIKey, "gsk_test")
	t.Setenv("PRIMARY_AI_PROVIDER", "groq")
	t.Setenv("ENABLE_AI_FALLBACK", "false")
	t.Setenv("RATE_LIMIT_REQUESTS", "120")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := config.Load("", zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "groq", cfg.PrimaryProvider)
	assert.False(t, cfg.EnableFallback)
	assert.Equal(t, 120, cfg.RateLimitRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, []string{"https://app.example.com", "https://staging.example.com"}, cfg.AllowedOrigins)

	creds := cfg.Credentials()
	assert.True(t, creds.Groq)
	assert.False(t, creds.Gemini)
}

func TestLoadProviderNamesAreLowercased(t *testing.T) {
	t.Setenv("PRIMARY_AI_PROVIDER", "Grok")
	t.Setenv("IMAGE_API_PROVIDER", "Pollinations")

	cfg, err := config.Load("", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "grok", cfg.PrimaryProvider)
	assert.Equal(t, "pollinations", cfg.ImageProvider)
}

func TestLoadYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":7070"
  log_level: debug
providers:
  primary: mistral
  enable_fallback: false
rate_limit:
  requests: 10
  window: 10s
  max_clients: 100
`), 0o600))

	cfg, err := config.Load(path, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "mistral", cfg.PrimaryProvider)
	assert.False(t, cfg.EnableFallback)
	assert.Equal(t, 10, cfg.RateLimitRequests)
	assert.Equal(t, 10*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, 100, cfg.MaxTrackedClients)
}

func TestLoadMissingYAMLFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), zap.NewNop())
	require.Error(t, err)
}

func TestLoadInvalidWindow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit:\n  window: soon\n"), 0o600))

	_, err := config.Load(path, zap.NewNop())
	require.Error(t, err)
}

func TestGrokImageKeyFallsBackToChatKey(t *testing.T) {
	t.Setenv(config.EnvGrokAPIKey, "xai_chat")

	cfg, err := config.Load("", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "xai_chat", cfg.GrokImageKey())
	assert.True(t, cfg.ImageCredentials().Grok)

	t.Setenv(config.EnvGrokImageAPIKey, "xai_image")
	cfg, err = config.Load("", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "xai_image", cfg.GrokImageKey())
}
