package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_Defaults(t *testing.T) {
	s := New()
	assert.NotEmpty(t, s.StorageDir)
	assert.True(t, s.AutosaveEnabled())
	assert.Equal(t, DefaultContextWindow, s.ContextWindow)
	assert.Equal(t, DefaultCharsPerToken, s.CharsPerToken)
	assert.Equal(t, 10*time.Second, s.LockTimeout())
	assert.NoError(t, s.Validate())
}

func TestLoad_TOML(t *testing.T) {
	path := writeSettings(t, "settings.toml", `
storage_dir = "/data/transcripts"
autosave = false
context_window = 200000
chars_per_token = 3.5
lock_timeout_seconds = 5
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/transcripts", s.StorageDir)
	assert.False(t, s.AutosaveEnabled())
	assert.Equal(t, 200000, s.ContextWindow)
	assert.Equal(t, 3.5, s.CharsPerToken)
	assert.Equal(t, 5*time.Second, s.LockTimeout())
}

func TestLoad_YAML(t *testing.T) {
	path := writeSettings(t, "settings.yaml", `
storage_dir: /data/transcripts
context_window: 128000
`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/transcripts", s.StorageDir)
	assert.Equal(t, 128000, s.ContextWindow)
	// Unset fields keep defaults.
	assert.True(t, s.AutosaveEnabled())
	assert.Equal(t, DefaultCharsPerToken, s.CharsPerToken)
}

func TestLoad_JSON(t *testing.T) {
	path := writeSettings(t, "settings.json", `{"storage_dir": "/data/t", "autosave": false}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/t", s.StorageDir)
	assert.False(t, s.AutosaveEnabled())
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeSettings(t, "settings.yaml", "")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, New().ContextWindow, s.ContextWindow)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeSettings(t, "settings.ini", "storage_dir=/x")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported settings format")
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := writeSettings(t, "settings.toml", "storage_dir = [broken")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeSettings(t, "settings.toml", "context_window = -1")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "context_window")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{name: "empty storage dir", mutate: func(s *Settings) { s.StorageDir = "" }},
		{name: "zero context window", mutate: func(s *Settings) { s.ContextWindow = 0 }},
		{name: "negative ratio", mutate: func(s *Settings) { s.CharsPerToken = -1 }},
		{name: "zero lock timeout", mutate: func(s *Settings) { s.LockTimeoutSeconds = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}
