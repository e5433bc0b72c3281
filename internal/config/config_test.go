package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "INOS", cfg.App.Name)
	assert.Equal(t, 500000, cfg.Storage.MaxBytes)
	assert.Equal(t, "inos-storage", cfg.Storage.Key)
	assert.Equal(t, 30*time.Second, cfg.Analyzer.BasicTimeout)
	assert.Equal(t, 45*time.Second, cfg.Analyzer.FullFaceTimeout)
	assert.Equal(t, "photos", cfg.Backend.Bucket)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, "*", cfg.App.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.App.ShutdownTimeout)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inos.yaml")
	yaml := `
log:
  level: debug
storage:
  driver: memory
analyzer:
  provider: openai
  full_face_timeout: 60s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("PORT", "9090")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("OPENAI_API_KEY", "sk-test-1234567890")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 60*time.Second, cfg.Analyzer.FullFaceTimeout)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.True(t, cfg.Backend.SupabaseConfigured())
	assert.Equal(t, "sk-test-1234567890", cfg.Analyzer.APIKey())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "floppy")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Driver")
}

func TestRedisDriverRequiresURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "redis")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RedisURL")
}
