package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// User identifies the account every workflow call is scoped to.
type User struct {
	ID string `toml:"id"`
}

// Service contains configuration for the remote workflow service routes.
type Service struct {
	URL            string `toml:"url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Storage contains configuration for the dataset archive bucket.
type Storage struct {
	BucketURL string `toml:"bucket_url"`
}

// Records contains configuration for the run record REST API.
type Records struct {
	URL    string `toml:"url"`
	Table  string `toml:"table"`
	APIKey string `toml:"api_key"`
}

// Polling contains the refresh cadence for the two status cycles.
type Polling struct {
	JobInterval   int `toml:"job_interval"`
	ModelInterval int `toml:"model_interval"`
}

// Paths contains local state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tuner.
//
// Configuration sections by subsystem:
//   - User: the identifier every call is scoped to
//   - Service: remote workflow service base URL and request timeout
//   - Storage: afs bucket URL that receives dataset archives
//   - Records: run record REST API used to attach uploaded datasets
//   - Polling: job and model status refresh intervals
//   - Paths: local state (journal, session locks, logs)
//   - Logging: log format and level
type Config struct {
	User    User    `toml:"user"`
	Service Service `toml:"service"`
	Storage Storage `toml:"storage"`
	Records Records `toml:"records"`
	Polling Polling `toml:"polling"`
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tuner.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state directory. A file:// bucket is
// created on a best-effort basis; remote schemes are left to the store.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.StateDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.StateDir, err)
	}
	if local, ok := strings.CutPrefix(c.Storage.BucketURL, "file://"); ok && local != "" {
		_ = os.MkdirAll(local, 0o755)
	}
	return nil
}

// JournalPath is the SQLite database recording dispatched actions.
func (c *Config) JournalPath() string {
	return filepath.Join(c.Paths.StateDir, "journal.db")
}

// LogPath is the file every log line is mirrored to.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.StateDir, "tuner.log")
}

// SessionLockPath returns the flock path guarding a user's polling session.
func (c *Config) SessionLockPath(userID string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(strings.TrimSpace(userID))
	if name == "" {
		name = "anonymous"
	}
	return filepath.Join(c.Paths.StateDir, name+".lock")
}

// RequestTimeout returns the HTTP timeout for remote calls. Zero means the
// client default applies.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Service.RequestTimeout) * time.Second
}

// JobPollInterval returns the job status refresh interval.
func (c *Config) JobPollInterval() time.Duration {
	return time.Duration(c.Polling.JobInterval) * time.Second
}

// ModelPollInterval returns the model status refresh interval.
func (c *Config) ModelPollInterval() time.Duration {
	return time.Duration(c.Polling.ModelInterval) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
