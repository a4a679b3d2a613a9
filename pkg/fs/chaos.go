package fs

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all random fault injection. Targeted failures set
// with [Chaos.FailWrites] are injected regardless of the rates.
type ChaosConfig struct {
	// ReadFailRate controls how often FS.ReadFile fails entirely, returning
	// no data and EIO.
	ReadFailRate float64

	// WriteFailRate controls how often FS.WriteFileAtomic fails. Failed
	// writes leave the target untouched, like a failed rename would.
	WriteFailRate float64

	// ReadDirFailRate controls how often FS.ReadDir fails entirely.
	ReadDirFailRate float64
}

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	ReadFails    int64
	WriteFails   int64
	ReadDirFails int64
}

// Chaos wraps an [FS] and injects failures.
//
// Injected errors are *fs.PathError values carrying a syscall.Errno, so
// callers see the same shapes the OS would produce. Use [IsInjected] to tell
// them apart from real failures.
type Chaos struct {
	fs  FS
	cfg ChaosConfig

	mu        sync.Mutex
	rng       *rand.Rand
	failPaths map[string]struct{}

	readFails    atomic.Int64
	writeFails   atomic.Int64
	readDirFails atomic.Int64
}

// NewChaos wraps fsys with fault injection driven by seed.
// Panics if fsys is nil.
func NewChaos(fsys FS, seed uint64, cfg ChaosConfig) *Chaos {
	if fsys == nil {
		panic("fs is nil")
	}

	return &Chaos{
		fs:        fsys,
		cfg:       cfg,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		failPaths: make(map[string]struct{}),
	}
}

// FailWrites makes every subsequent WriteFileAtomic on the given paths fail
// with EIO. Calling it with no paths clears the list.
func (c *Chaos) FailWrites(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(paths) == 0 {
		clear(c.failPaths)

		return
	}

	for _, p := range paths {
		c.failPaths[p] = struct{}{}
	}
}

// Stats returns the number of injected faults so far.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		ReadFails:    c.readFails.Load(),
		WriteFails:   c.writeFails.Load(),
		ReadDirFails: c.readDirFails.Load(),
	}
}

// ReadFile reads through the wrapped FS unless a read fault is injected.
func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if c.roll(c.cfg.ReadFailRate) {
		c.readFails.Add(1)

		return nil, injectPathError("open", path, syscall.EIO)
	}

	return c.fs.ReadFile(path)
}

// WriteFileAtomic writes through the wrapped FS unless the path is targeted
// or a write fault is rolled.
func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	c.mu.Lock()
	_, targeted := c.failPaths[path]
	c.mu.Unlock()

	if targeted || c.roll(c.cfg.WriteFailRate) {
		c.writeFails.Add(1)

		return injectPathError("rename", path, syscall.EIO)
	}

	return c.fs.WriteFileAtomic(path, data, perm)
}

// ReadDir lists through the wrapped FS unless a fault is injected.
func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	if c.roll(c.cfg.ReadDirFailRate) {
		c.readDirFails.Add(1)

		return nil, injectPathError("readdirent", path, syscall.EIO)
	}

	return c.fs.ReadDir(path)
}

// A passthrough wrapper for [FS.MkdirAll].
func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	return c.fs.MkdirAll(path, perm)
}

// A passthrough wrapper for [FS.Stat].
func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	return c.fs.Stat(path)
}

// A passthrough wrapper for [FS.Exists].
func (c *Chaos) Exists(path string) (bool, error) {
	return c.fs.Exists(path)
}

// A passthrough wrapper for [FS.Remove].
func (c *Chaos) Remove(path string) error {
	return c.fs.Remove(path)
}

// IsInjected reports whether err (or any wrapped error) was injected by
// [Chaos]. Returns false if err is nil.
func IsInjected(err error) bool {
	if err == nil {
		return false
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		_, ok := injectedPathErrors.Load(pathErr)

		return ok
	}

	return false
}

// --- Private api ---

var injectedPathErrors sync.Map // map[*fs.PathError]struct{}

func injectPathError(op, path string, errno syscall.Errno) error {
	err := &fs.PathError{Op: op, Path: path, Err: errno}
	injectedPathErrors.Store(err, struct{}{})

	return err
}

func (c *Chaos) roll(rate float64) bool {
	if rate <= 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.rng.Float64() < rate
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)
