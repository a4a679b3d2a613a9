// Package fs provides the document storage abstraction used by the task
// repository, plus a fault-injecting implementation for tests.
//
// The main types are:
//   - [FS]: interface for the filesystem operations the repository needs
//   - [Real]: production implementation using [os] and atomic replace
//   - [Chaos]: testing implementation that injects write/read failures
//
// Example usage:
//
//	fsys := fs.NewReal()
//	data, err := fsys.ReadFile("tasks/CR-1 Login.md")
//	if err != nil {
//	    return err
//	}
//
//	err = fsys.WriteFileAtomic("tasks/CR-1 Login.md", data, 0o644)
package fs

import (
	"os"
)

// FS defines filesystem operations for reading, writing, and managing
// documents.
//
// All methods mirror their [os] package equivalents but can be intercepted
// for testing with fault injection.
//
// Paths use OS semantics (like the os package and path/filepath), not the
// slash-separated paths used by the standard library io/fs package.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic replaces path with data so readers observe either the
	// old or the new content, never a torn write. The file is created with
	// perm if it doesn't exist.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// ReadDir reads a directory and returns its entries. See [os.ReadDir].
	// Entries are sorted by name.
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	// No error if the directory already exists.
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	// Returns [os.ErrNotExist] if file doesn't exist.
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error
}
