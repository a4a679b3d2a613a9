package task

import (
	"context"
	"slices"
	"sync"
)

// maxReloadAttempts bounds how often [Projection.Reload] retries when
// mutations keep landing while it loads.
const maxReloadAttempts = 3

// LoadFunc produces a fresh item list, typically [Repository.ListItems].
type LoadFunc func(ctx context.Context) ([]Item, error)

// Projection is the shared in-memory item list. Every change bumps a
// version counter; a reload commits only if nothing changed while it was
// loading, so a slow reload cannot overwrite a newer optimistic update.
type Projection struct {
	mu      sync.Mutex
	version uint64
	items   []Item
}

// NewProjection returns a projection holding items.
func NewProjection(items []Item) *Projection {
	return &Projection{items: slices.Clone(items)}
}

// Snapshot returns the current items and the version they belong to.
// The slice is a copy; the items share Meta with the projection and must be
// treated as read-only.
func (p *Projection) Snapshot() ([]Item, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.items), p.version
}

// Version returns the current version.
func (p *Projection) Version() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.version
}

// Get returns the item with the given path.
func (p *Projection) Get(path string) (Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := slices.IndexFunc(p.items, func(it Item) bool { return it.Path == path })
	if idx < 0 {
		return Item{}, false
	}

	return p.items[idx], true
}

// Mutate replaces the items with fn's result and bumps the version.
// fn receives a copy it may modify freely.
func (p *Projection) Mutate(fn func(items []Item) []Item) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.items = fn(slices.Clone(p.items))
	p.version++

	return p.version
}

// CommitIf replaces the items when the version still equals base.
func (p *Projection) CommitIf(items []Item, base uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.version != base {
		return false
	}

	p.items = items
	p.version++

	return true
}

// Reload loads a fresh list and commits it if no mutation happened during the
// load. Otherwise it loads again, up to a small bound, after which the last
// load is committed unconditionally.
func (p *Projection) Reload(ctx context.Context, load LoadFunc) error {
	var items []Item

	for range maxReloadAttempts {
		base := p.Version()

		loaded, err := load(ctx)
		if err != nil {
			return err
		}

		if p.CommitIf(loaded, base) {
			return nil
		}

		items = loaded
	}

	p.Mutate(func([]Item) []Item { return items })

	return nil
}
