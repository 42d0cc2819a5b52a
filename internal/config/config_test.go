package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GRAPHTUTOR_MODEL", "")
	t.Setenv("GRAPHTUTOR_ENGINE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, EngineGemini, cfg.Engine)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Model)
	assert.Equal(t, 0.7, cfg.Temperature)
	assert.Empty(t, cfg.APIKey)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("GRAPHTUTOR_MODEL", "")
	t.Setenv("GRAPHTUTOR_ENGINE", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "engine: genai\nmodel: gemini-3-pro-preview\napi_key: file-key\ntheme: dark\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EngineGenAI, cfg.Engine)
	assert.Equal(t, "gemini-3-pro-preview", cfg.Model)
	assert.Equal(t, "dark", cfg.Theme)
	// env credential wins over the file one
	assert.Equal(t, "env-key", cfg.APIKey)
	// unset fields are backfilled
	assert.Equal(t, 8192, cfg.MaxOutputTokens)
}

func TestLoadInvalidYAMLFallsBackToDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine: [broken"), 0600))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Equal(t, EngineGemini, cfg.Engine)
}

func TestTimeoutDuration(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2*time.Minute, cfg.TimeoutDuration())

	cfg.Timeout = "30s"
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())

	cfg.Timeout = "garbage"
	assert.Equal(t, 2*time.Minute, cfg.TimeoutDuration())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GRAPHTUTOR_MODEL", "")
	t.Setenv("GRAPHTUTOR_ENGINE", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: first\n"), 0600))

	reloaded := make(chan Config, 1)
	w, err := NewWatcher(path, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("model: second\n"), 0600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "second", cfg.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not deliver reload")
	}
}
