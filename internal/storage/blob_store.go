package storage

import (
	"errors"
	"fmt"
	"os"
)

// ErrSkipped is returned by Write when an existing file was kept under
// ConflictSkip.
var ErrSkipped = errors.New("existing file kept")

// BlobStore manages local file operations.
type BlobStore interface {
	// Write saves data to a file path.
	Write(path string, data []byte, mode os.FileMode) error

	// Exists checks if a file exists.
	Exists(path string) (bool, error)

	// EnsureDir creates a directory if it doesn't exist.
	EnsureDir(path string) error

	// Resolve returns the absolute location of a store-relative path.
	Resolve(path string) (string, error)
}

// ConflictStrategy defines how to handle file conflicts.
type ConflictStrategy int

const (
	// ConflictOverwrite replaces existing files.
	ConflictOverwrite ConflictStrategy = iota

	// ConflictError returns an error on conflict.
	ConflictError

	// ConflictSkip keeps the existing file and reports ErrSkipped.
	ConflictSkip
)

var conflictNames = map[string]ConflictStrategy{
	"overwrite": ConflictOverwrite,
	"error":     ConflictError,
	"skip":      ConflictSkip,
}

// ParseConflictStrategy maps a config value to a ConflictStrategy.
func ParseConflictStrategy(name string) (ConflictStrategy, error) {
	if s, ok := conflictNames[name]; ok {
		return s, nil
	}
	return ConflictOverwrite, fmt.Errorf("unknown conflict strategy: %q", name)
}
