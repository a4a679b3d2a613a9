package task

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/frontmatter"
)

const batchWorkers = 8

// Write is one document patch inside a [Batch].
type Write struct {
	Path  string
	Patch *frontmatter.Map
}

// Outcome is the aggregate result of committing a [Batch].
type Outcome struct {
	BatchID   string
	Committed []string
	Failed    map[string]error

	// Items holds the post-write state of every committed document.
	Items map[string]Item
}

// OK reports whether every write committed.
func (o Outcome) OK() bool {
	return len(o.Failed) == 0
}

// Err returns nil when every write committed, otherwise a
// [*PartialBatchError].
func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}

	return &PartialBatchError{
		BatchID:   o.BatchID,
		Committed: slices.Clone(o.Committed),
		Failed:    maps.Clone(o.Failed),
	}
}

// Batch collects patches to several documents and writes them concurrently.
// There is no rollback: whatever subset commits stays committed.
type Batch struct {
	repo   *Repository
	id     string
	writes []Write
	index  map[string]int
}

// NewBatch starts an empty batch with a fresh id.
func (r *Repository) NewBatch() *Batch {
	return &Batch{repo: r, id: uuid.NewString(), index: make(map[string]int)}
}

// ID returns the batch id used in log fields.
func (b *Batch) ID() string { return b.id }

// Len returns the number of distinct documents in the batch.
func (b *Batch) Len() int { return len(b.writes) }

// Writes returns the queued writes in insertion order.
func (b *Batch) Writes() []Write {
	out := make([]Write, len(b.writes))
	for i, w := range b.writes {
		out[i] = Write{Path: w.Path, Patch: w.Patch.Clone()}
	}

	return out
}

// Add queues patch for path. A second patch for the same path is merged into
// the first so each document is written once.
func (b *Batch) Add(path string, patch *frontmatter.Map) *Batch {
	if idx, ok := b.index[path]; ok {
		b.writes[idx].Patch = frontmatter.Merge(b.writes[idx].Patch, patch)

		return b
	}

	b.index[path] = len(b.writes)
	b.writes = append(b.writes, Write{Path: path, Patch: patch.Clone()})

	return b
}

// Commit issues every write and waits for all of them. Completion order is
// unspecified. A cancelled ctx fails the writes that have not started.
func (b *Batch) Commit(ctx context.Context) Outcome {
	log := b.repo.log.With(zap.String("batch", b.id))

	outcome := Outcome{
		BatchID: b.id,
		Failed:  make(map[string]error),
		Items:   make(map[string]Item, len(b.writes)),
	}

	var mu sync.Mutex

	var group errgroup.Group

	group.SetLimit(batchWorkers)

	for _, w := range b.writes {
		group.Go(func() error {
			it, err := b.repo.Patch(ctx, w.Path, w.Patch)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				outcome.Failed[w.Path] = err

				log.Warn("batch write failed", zap.String("path", w.Path), zap.Error(err))

				return nil
			}

			outcome.Committed = append(outcome.Committed, w.Path)
			outcome.Items[w.Path] = it

			return nil
		})
	}

	_ = group.Wait()

	slices.Sort(outcome.Committed)

	log.Debug("batch committed",
		zap.Int("writes", len(b.writes)),
		zap.Int("committed", len(outcome.Committed)),
		zap.Int("failed", len(outcome.Failed)),
	)

	return outcome
}

func sortedKeys(m map[string]error) []string {
	return slices.Sorted(maps.Keys(m))
}
