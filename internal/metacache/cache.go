package metacache

import (
	"fmt"
	"sync"
	"time"

	"taskboard/pkg/fs"
)

// Cache memoizes [Parse] results per path. An entry is reused while the
// file's modification time and size are unchanged.
//
// Cache is safe for concurrent use.
type Cache struct {
	fs fs.FS

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	modTime time.Time
	size    int64
	block   Block
	err     error
}

// New returns an empty cache reading through fsys.
func New(fsys fs.FS) *Cache {
	return &Cache{fs: fsys, entries: make(map[string]cacheEntry)}
}

// Get returns the parsed block of the document at path.
//
// Errors from stat/read are returned as-is (wrapping os.ErrNotExist for
// missing documents). Parse errors wrap [ErrUnparseableMetadata] and come
// with a usable Block whose Meta is empty.
//
// The returned Meta is shared with the cache; Clone it before mutating.
func (c *Cache) Get(path string) (Block, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		c.Invalidate(path)

		return Block{}, fmt.Errorf("stat %s: %w", path, err)
	}

	c.mu.Lock()
	entry, ok := c.entries[path]
	c.mu.Unlock()

	if ok && entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
		return entry.block, entry.err
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return Block{}, fmt.Errorf("read %s: %w", path, err)
	}

	block, parseErr := Parse(data)

	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: info.ModTime(), size: info.Size(), block: block, err: parseErr}
	c.mu.Unlock()

	return block, parseErr
}

// Invalidate drops the entry for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Forget drops every entry.
func (c *Cache) Forget() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
