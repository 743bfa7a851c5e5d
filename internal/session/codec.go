// Package session reads and writes thought histories as JSON files.
//
// Every read or write holds an advisory lock on a companion lock file, so
// separate processes sharing a storage directory see whole-file
// consistency. Writes go to a temporary file that is renamed over the
// target, so a reader never observes a partially written file.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// Default lock settings.
const (
	DefaultLockTimeout = 10 * time.Second
	DefaultRetryDelay  = 25 * time.Millisecond
)

// Config configures a Codec.
type Config struct {
	// LockTimeout bounds the wait for a companion lock.
	LockTimeout time.Duration

	// RetryDelay is the polling interval while waiting for a lock.
	RetryDelay time.Duration
}

// DefaultConfig returns the default codec configuration.
func DefaultConfig() Config {
	return Config{
		LockTimeout: DefaultLockTimeout,
		RetryDelay:  DefaultRetryDelay,
	}
}

// ExportMetadata marks a Save as an export and fills the envelope header.
type ExportMetadata struct {
	Project string
}

// Codec serializes thought histories to disk.
type Codec struct {
	config Config
	logger *zap.Logger
}

// NewCodec creates a codec. A nil logger disables logging.
func NewCodec(cfg Config, logger *zap.Logger) *Codec {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Codec{config: cfg, logger: logger}
}

type sessionFile struct {
	Thoughts    []thought.Record `json:"thoughts"`
	LastUpdated string           `json:"lastUpdated"`
}

type exportFile struct {
	ExportedAt string           `json:"exportedAt"`
	Metadata   exportHeader     `json:"metadata"`
	Thoughts   []thought.Record `json:"thoughts"`
}

type exportHeader struct {
	Project       string         `json:"project"`
	TotalThoughts int            `json:"totalThoughts"`
	Stages        map[string]int `json:"stages"`
}

// Load reads the records stored at path while holding a shared lock on
// lockPath. A missing file yields an empty history. A file that exists but
// cannot be decoded yields a *StorageError wrapping ErrCorrupted.
func (c *Codec) Load(ctx context.Context, path, lockPath string) ([]*thought.Thought, error) {
	unlock, err := c.acquire(ctx, lockPath, true)
	if err != nil {
		return nil, storageErr("load", path, err)
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("session file not found, starting empty", zap.String("path", path))
		return []*thought.Thought{}, nil
	}
	if err != nil {
		return nil, storageErr("load", path, err)
	}

	thoughts, err := Decode(data)
	if err != nil {
		return nil, storageErr("load", path, err)
	}

	c.logger.Debug("session loaded", zap.String("path", path), zap.Int("thoughts", len(thoughts)))
	return thoughts, nil
}

// Save writes thoughts to path while holding an exclusive lock on lockPath.
// A non-nil meta writes the export envelope instead of the session layout.
func (c *Codec) Save(ctx context.Context, path string, thoughts []*thought.Thought, lockPath string, meta *ExportMetadata) error {
	data, err := Encode(thoughts, meta, time.Now().UTC())
	if err != nil {
		return storageErr("save", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return storageErr("save", path, fmt.Errorf("failed to create directory: %w", err))
	}

	unlock, err := c.acquire(ctx, lockPath, false)
	if err != nil {
		return storageErr("save", path, err)
	}
	defer unlock()

	if err := writeAtomic(path, data); err != nil {
		return storageErr("save", path, err)
	}

	c.logger.Debug("session saved",
		zap.String("path", path),
		zap.Int("thoughts", len(thoughts)),
		zap.Bool("export", meta != nil),
	)
	return nil
}

// Quarantine renames a corrupted file out of the way and returns its new
// location. The companion lock is held for the rename.
func (c *Codec) Quarantine(ctx context.Context, path, lockPath string) (string, error) {
	unlock, err := c.acquire(ctx, lockPath, false)
	if err != nil {
		return "", storageErr("quarantine", path, err)
	}
	defer unlock()

	dest := fmt.Sprintf("%s.corrupt-%d", path, time.Now().UnixNano())
	if err := os.Rename(path, dest); err != nil {
		return "", storageErr("quarantine", path, err)
	}
	c.logger.Warn("corrupted session file quarantined",
		zap.String("path", path),
		zap.String("quarantine_path", dest),
	)
	return dest, nil
}

// Encode renders thoughts in the session layout, or the export envelope
// when meta is non-nil.
func Encode(thoughts []*thought.Thought, meta *ExportMetadata, now time.Time) ([]byte, error) {
	records := make([]thought.Record, len(thoughts))
	for i, t := range thoughts {
		records[i] = t.Record()
	}

	var v any
	if meta == nil {
		v = sessionFile{
			Thoughts:    records,
			LastUpdated: now.Format(time.RFC3339Nano),
		}
	} else {
		stages := make(map[string]int, len(thought.Stages()))
		for _, st := range thought.Stages() {
			stages[string(st)] = 0
		}
		for _, t := range thoughts {
			stages[string(t.Stage)]++
		}
		v = exportFile{
			ExportedAt: now.Format(time.RFC3339Nano),
			Metadata: exportHeader{
				Project:       meta.Project,
				TotalThoughts: len(thoughts),
				Stages:        stages,
			},
			Thoughts: records,
		}
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal thoughts: %w", err)
	}
	return data, nil
}

// Decode parses a session file, an export file, or a bare JSON array of
// records. Any decoding or validation failure wraps ErrCorrupted.
func Decode(data []byte) ([]*thought.Thought, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCorrupted)
	}

	var records []thought.Record
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
	case '{':
		var envelope struct {
			Thoughts *[]thought.Record `json:"thoughts"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
		}
		if envelope.Thoughts == nil {
			return nil, fmt.Errorf("%w: missing \"thoughts\" list", ErrCorrupted)
		}
		records = *envelope.Thoughts
	default:
		return nil, fmt.Errorf("%w: unexpected content", ErrCorrupted)
	}

	thoughts := make([]*thought.Thought, 0, len(records))
	for i, r := range records {
		t, err := thought.FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorrupted, i, err)
		}
		thoughts = append(thoughts, t)
	}
	return thoughts, nil
}

// acquire takes the companion lock, waiting at most the configured timeout.
func (c *Codec) acquire(ctx context.Context, lockPath string, shared bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, c.config.LockTimeout)
	defer cancel()

	fl := flock.New(lockPath, flock.SetPermissions(0o600))
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(lockCtx, c.config.RetryDelay)
	} else {
		ok, err = fl.TryLockContext(lockCtx, c.config.RetryDelay)
	}
	if err != nil || !ok {
		_ = fl.Close()
	}

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, lockPath, c.config.LockTimeout)
	case err != nil:
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	case !ok:
		return nil, fmt.Errorf("%w: %s", ErrLockTimeout, lockPath)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			c.logger.Warn("failed to release file lock", zap.String("lock_path", lockPath), zap.Error(err))
		}
	}, nil
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
