package session

import (
	"errors"
	"fmt"
)

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage error")

// Storage failure causes.
var (
	// ErrLockTimeout indicates the companion lock could not be acquired
	// within the configured wait.
	ErrLockTimeout = errors.New("timed out waiting for file lock")

	// ErrCorrupted indicates a session or export file that exists but
	// cannot be decoded into valid records.
	ErrCorrupted = errors.New("session file corrupted")
)

// StorageError describes a failed read or write of a session or export file.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrStorage and the underlying cause.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}
