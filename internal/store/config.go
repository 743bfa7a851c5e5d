package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyrsmithlabs/thoughtd/internal/session"
)

// DefaultDirName is the storage directory created under the user's home.
const DefaultDirName = ".mcp_sequential_thinking"

// CorruptPolicy decides what happens when a session file cannot be decoded.
type CorruptPolicy string

const (
	// CorruptFail surfaces the error to the caller and caches nothing, so a
	// later call retries the load.
	CorruptFail CorruptPolicy = "fail"

	// CorruptQuarantine renames the bad file aside and starts the project
	// with an empty history.
	CorruptQuarantine CorruptPolicy = "quarantine"
)

// Valid reports whether p is a known policy.
func (p CorruptPolicy) Valid() bool {
	return p == CorruptFail || p == CorruptQuarantine
}

// Config configures a Store.
type Config struct {
	// Dir holds one <project>_session.json file per project.
	Dir string

	// DefaultProject is the project used when an operation names none.
	DefaultProject string

	// CorruptPolicy applies to session files that fail to decode.
	CorruptPolicy CorruptPolicy

	// LockTimeout bounds the wait for a companion lock file.
	LockTimeout time.Duration
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:            DefaultDir(),
		DefaultProject: "default",
		CorruptPolicy:  CorruptFail,
		LockTimeout:    session.DefaultLockTimeout,
	}
}

// DefaultDir returns ~/.mcp_sequential_thinking, falling back to a
// relative directory when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Dir) == "" {
		return fmt.Errorf("store dir is required")
	}
	if c.CorruptPolicy != "" && !c.CorruptPolicy.Valid() {
		return fmt.Errorf("invalid corrupt policy %q: must be %q or %q", c.CorruptPolicy, CorruptFail, CorruptQuarantine)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock timeout must not be negative")
	}
	return nil
}
