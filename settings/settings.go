// Package settings loads aiderdesk configuration files.
//
// Config files may be TOML, YAML, or JSON; Load dispatches on the file
// extension. Missing fields fall back to defaults, so an empty file is a
// valid configuration.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults applied by New and Load.
const (
	DefaultStorageDirName = ".aiderdesk"
	DefaultContextWindow  = 100000
	DefaultCharsPerToken  = 4.0
	DefaultLockTimeoutSeconds = 10
)

// Settings configures the conversation-history engine.
type Settings struct {
	// StorageDir is where transcript snapshots are written.
	// Default: ~/.aiderdesk under the user's home directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir" toml:"storage_dir"`

	// Autosave controls whether transcript mutations write through to the
	// store. Default: true.
	Autosave *bool `json:"autosave,omitempty" yaml:"autosave,omitempty" toml:"autosave"`

	// ContextWindow is the model's context window in tokens, used for
	// compaction budgeting. Default: 100000.
	ContextWindow int `json:"context_window" yaml:"context_window" toml:"context_window"`

	// CharsPerToken tunes the token estimator. Default: 4.0.
	CharsPerToken float64 `json:"chars_per_token" yaml:"chars_per_token" toml:"chars_per_token"`

	// LockTimeoutSeconds bounds how long a task operation waits for the
	// task's lock. Default: 10. Seconds rather than a duration string so
	// the value reads the same in TOML, YAML, and JSON.
	LockTimeoutSeconds int `json:"lock_timeout_seconds" yaml:"lock_timeout_seconds" toml:"lock_timeout_seconds"`
}

// New returns settings populated with defaults.
func New() Settings {
	enabled := true
	return Settings{
		StorageDir:         defaultStorageDir(),
		Autosave:           &enabled,
		ContextWindow:      DefaultContextWindow,
		CharsPerToken:      DefaultCharsPerToken,
		LockTimeoutSeconds: DefaultLockTimeoutSeconds,
	}
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultStorageDirName
	}
	return filepath.Join(home, DefaultStorageDirName)
}

// AutosaveEnabled resolves the autosave flag with its default.
func (s Settings) AutosaveEnabled() bool {
	if s.Autosave == nil {
		return true
	}
	return *s.Autosave
}

// Validate checks the settings for usable values.
func (s Settings) Validate() error {
	if s.StorageDir == "" {
		return fmt.Errorf("storage_dir must not be empty")
	}
	if s.ContextWindow <= 0 {
		return fmt.Errorf("context_window must be positive, got %d", s.ContextWindow)
	}
	if s.CharsPerToken <= 0 {
		return fmt.Errorf("chars_per_token must be positive, got %v", s.CharsPerToken)
	}
	if s.LockTimeoutSeconds <= 0 {
		return fmt.Errorf("lock_timeout_seconds must be positive, got %d", s.LockTimeoutSeconds)
	}
	return nil
}

// LockTimeout returns the lock timeout as a duration.
func (s Settings) LockTimeout() time.Duration {
	return time.Duration(s.LockTimeoutSeconds) * time.Second
}

// Load reads settings from path, selecting the decoder by extension
// (.toml, .yaml, .yml, or .json). Fields absent from the file keep their
// defaults. The result is validated before being returned.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	s := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse toml settings: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse yaml settings: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse json settings: %w", err)
		}
	default:
		return Settings{}, fmt.Errorf("unsupported settings format %q", filepath.Ext(path))
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}
