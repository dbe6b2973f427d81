// Package config resolves the configuration directory and backend credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// AppName is the application directory name.
	AppName = "firetodo"

	// EnvFile is the optional credentials file inside the config directory.
	EnvFile = ".env"

	// BackendFirebase talks to the hosted Firebase services.
	BackendFirebase = "firebase"

	// BackendMemory keeps everything in process.
	BackendMemory = "memory"

	// DefaultPollInterval is how often live task queries are refreshed.
	DefaultPollInterval = 2 * time.Second
)

// Firebase holds connection credentials for the hosted backend.
type Firebase struct {
	APIKey        string
	ProjectID     string
	StorageBucket string

	// Emulator hosts ("host:port"); empty means the production service.
	AuthEmulatorHost      string
	FirestoreEmulatorHost string
	StorageEmulatorHost   string
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the backend implementation.
	Backend string

	// PollInterval paces live query refreshes.
	PollInterval time.Duration

	Firebase Firebase
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/firetodo or $HOME/.config/firetodo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, PollInterval: DefaultPollInterval}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// EnvPath returns the path to the credentials file.
func (c *Config) EnvPath() string {
	return filepath.Join(c.Dir, EnvFile)
}

// Load reads backend settings from the environment. Variables already set
// take precedence over the .env file in the config directory.
// A backend chosen by flag (c.Backend non-empty) overrides FIRETODO_BACKEND.
func (c *Config) Load() error {
	if err := godotenv.Load(c.EnvPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", c.EnvPath(), err)
	}

	if c.Backend == "" {
		c.Backend = os.Getenv("FIRETODO_BACKEND")
	}
	if c.Backend == "" {
		c.Backend = BackendFirebase
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))

	if v := os.Getenv("FIRETODO_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid FIRETODO_POLL_INTERVAL: %q", v)
		}
		c.PollInterval = d
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}

	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendFirebase:
		return c.loadFirebase()
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
}

func (c *Config) loadFirebase() error {
	fb := &c.Firebase
	fb.APIKey = os.Getenv("FIREBASE_API_KEY")
	fb.ProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	fb.StorageBucket = os.Getenv("FIREBASE_STORAGE_BUCKET")
	fb.AuthEmulatorHost = os.Getenv("FIREBASE_AUTH_EMULATOR_HOST")
	fb.FirestoreEmulatorHost = os.Getenv("FIRESTORE_EMULATOR_HOST")
	fb.StorageEmulatorHost = os.Getenv("FIREBASE_STORAGE_EMULATOR_HOST")

	var missing []string
	if fb.APIKey == "" {
		missing = append(missing, "FIREBASE_API_KEY")
	}
	if fb.ProjectID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s (set them in the environment or %s)",
			strings.Join(missing, ", "), c.EnvPath())
	}

	if fb.StorageBucket == "" {
		fb.StorageBucket = fb.ProjectID + ".appspot.com"
	}
	return nil
}
