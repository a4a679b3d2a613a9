// Package board arranges task items into status columns and executes card
// moves and column edits against the task documents.
//
// A move rewrites the order field of every card in the affected columns so
// each column keeps orders 0..n-1. The writes go out as one [task.Batch];
// before issuing it the engine opens a suppression window on the
// reconciler, and on success applies the result to the projection directly
// instead of waiting for a reload. Any failed write surfaces one notice and
// forces a full reload; committed writes are not rolled back.
package board

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/frontmatter"
	"taskboard/internal/task"
)

// DateLayout is the format of startDate and endDate.
const DateLayout = "2006-01-02"

// DefaultSuppressWindow is how long echoes of a move are deferred.
const DefaultSuppressWindow = time.Second

// Default status patterns.
var (
	DefaultCompletedPattern  = regexp.MustCompile(`(?i)^\s*(done|complete|completed|closed|finished)\s*$`)
	DefaultInProgressPattern = regexp.MustCompile(`(?i)^\s*(in[ _-]?progress|doing|started|active)\s*$`)
)

var (
	// ErrUnknownStatus is returned when a move names a column that does not
	// exist.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrArchived is returned when a move names an archived card. Archived
	// cards are not on the board and have no column position.
	ErrArchived = errors.New("task is archived")
)

// SettingsStore persists the label sequence.
type SettingsStore interface {
	SaveStatuses(labels []string) error
}

// Notifier shows a transient message to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

// Reconciler is the part of the change reconciler the engine drives.
type Reconciler interface {
	SuppressReloads(d time.Duration, ignorePending bool)
	ReloadNow(ctx context.Context) error
}

// writeExpecter is implemented by reconcilers that can tell the engine's
// own echoes apart from other changes inside a suppression window.
type writeExpecter interface {
	ExpectWrites(paths ...string)
}

// Options configures an [Engine]. Zero values select defaults.
type Options struct {
	Dir               string
	Statuses          []string
	Settings          SettingsStore
	CompletedPattern  *regexp.Regexp
	InProgressPattern *regexp.Regexp
	SuppressWindow    time.Duration
	Reconciler        Reconciler
	Notifier          Notifier
	Now               func() time.Time
	Logger            *zap.Logger
}

// Engine owns the column layout and executes board transactions.
//
// Transactions are serialized: a move started while another is writing
// waits for it and then works from the updated projection.
type Engine struct {
	repo       *task.Repository
	proj       *task.Projection
	dir        string
	settings   SettingsStore
	completed  *regexp.Regexp
	inProgress *regexp.Regexp
	window     time.Duration
	rec        Reconciler
	notifier   Notifier
	now        func() time.Time
	log        *zap.Logger

	// txMu serializes transactions.
	txMu sync.Mutex

	mu       sync.Mutex
	statuses *StatusSet
}

// NewEngine returns an engine over repo and proj.
func NewEngine(repo *task.Repository, proj *task.Projection, opts Options) *Engine {
	if len(opts.Statuses) == 0 {
		opts.Statuses = DefaultStatuses
	}

	if opts.CompletedPattern == nil {
		opts.CompletedPattern = DefaultCompletedPattern
	}

	if opts.InProgressPattern == nil {
		opts.InProgressPattern = DefaultInProgressPattern
	}

	if opts.SuppressWindow <= 0 {
		opts.SuppressWindow = DefaultSuppressWindow
	}

	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(string) {})
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Engine{
		repo:       repo,
		proj:       proj,
		dir:        opts.Dir,
		settings:   opts.Settings,
		completed:  opts.CompletedPattern,
		inProgress: opts.InProgressPattern,
		window:     opts.SuppressWindow,
		rec:        opts.Reconciler,
		notifier:   opts.Notifier,
		now:        opts.Now,
		log:        opts.Logger,
		statuses:   NewStatusSet(opts.Statuses...),
	}
}

// Statuses returns the column labels in order.
func (e *Engine) Statuses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.statuses.Labels()
}

// Today returns the current date as written to date fields.
func (e *Engine) Today() string {
	return e.now().Format(DateLayout)
}

// Reload rebuilds the projection from disk.
func (e *Engine) Reload(ctx context.Context) error {
	return e.proj.Reload(ctx, e.repo.Loader(e.dir))
}

// Bucket is one column: a label and its cards in display order.
type Bucket struct {
	Label string
	Items []task.Item
}

// Buckets groups the projection by column. Items whose status is not a
// label land in the first column; archived items are left out. Cards are
// ordered by order, cards without one last, ties by name.
func (e *Engine) Buckets() []Bucket {
	items, _ := e.proj.Snapshot()

	e.mu.Lock()
	labels := e.statuses.Labels()
	set := NewStatusSet(labels...)
	e.mu.Unlock()

	return bucketize(set, items)
}

// Bucket returns the column with the given label.
func (e *Engine) Bucket(label string) (Bucket, bool) {
	for _, b := range e.Buckets() {
		if b.Label == label {
			return b, true
		}
	}

	return Bucket{}, false
}

func bucketize(set *StatusSet, items []task.Item) []Bucket {
	labels := set.Labels()
	buckets := make([]Bucket, len(labels))
	index := make(map[string]int, len(labels))

	for i, label := range labels {
		buckets[i] = Bucket{Label: label, Items: []task.Item{}}
		index[label] = i
	}

	if len(labels) == 0 {
		return buckets
	}

	for _, it := range items {
		if it.Archived {
			continue
		}

		i := index[set.Resolve(it.Status)]
		buckets[i].Items = append(buckets[i].Items, it)
	}

	for i := range buckets {
		slices.SortStableFunc(buckets[i].Items, compareCards)
	}

	return buckets
}

func compareCards(a, b task.Item) int {
	if a.HasOrder != b.HasOrder {
		if a.HasOrder {
			return -1
		}

		return 1
	}

	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}

	return cmp.Compare(a.Name, b.Name)
}

// MoveRequest describes a card drop. Index is the insertion position in the
// destination column as currently rendered, including the moving card when
// it is already there. Out-of-range indexes append.
type MoveRequest struct {
	Path  string
	From  string
	To    string
	Index int
}

// MoveResult reports what a move did.
type MoveResult struct {
	// Noop is true when the card was dropped onto its own slot. No write
	// was issued.
	Noop bool

	// Index is the card's final position in the destination column.
	Index int

	// Outcome is the batch result. Zero for a no-op.
	Outcome task.Outcome
}

// Drop resolves the pointer position against the rendered extents of the
// destination column and moves the card there.
func (e *Engine) Drop(ctx context.Context, path, from, to string, extents []Extent, pointerY float64) (MoveResult, error) {
	return e.MoveItem(ctx, MoveRequest{Path: path, From: from, To: to, Index: ResolveIndex(extents, pointerY)})
}

// MoveItem moves a card to a position in a column and persists the new
// order of every affected card.
//
// When the card's status changes, a destination matching the completed
// pattern sets endDate to today, and one matching the in-progress pattern
// sets startDate to today unless it is already set.
//
// A failed write returns an error wrapping [task.ErrPartialBatch] after the
// user was notified and the projection reloaded.
func (e *Engine) MoveItem(ctx context.Context, req MoveRequest) (MoveResult, error) {
	e.txMu.Lock()
	defer e.txMu.Unlock()

	e.mu.Lock()
	set := NewStatusSet(e.statuses.Labels()...)
	e.mu.Unlock()

	if !set.Contains(req.From) {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrUnknownStatus, req.From)
	}

	if !set.Contains(req.To) {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrUnknownStatus, req.To)
	}

	items, _ := e.proj.Snapshot()
	buckets := bucketize(set, items)

	// A card the caller placed in the wrong column is moved from where the
	// projection actually has it, so that column is renumbered too.
	if !containsPath(buckets[set.Index(req.From)].Items, req.Path) {
		for _, b := range buckets {
			if containsPath(b.Items, req.Path) {
				req.From = b.Label

				break
			}
		}
	}

	src := slices.Clone(buckets[set.Index(req.From)].Items)
	dst := src

	if req.From != req.To {
		dst = slices.Clone(buckets[set.Index(req.To)].Items)
	}

	target := req.Index
	if target < 0 || target > len(dst) {
		target = len(dst)
	}

	srcIdx := slices.IndexFunc(src, func(it task.Item) bool { return it.Path == req.Path })

	var moving task.Item

	if srcIdx >= 0 {
		moving = src[srcIdx]
	} else {
		loaded, err := e.repo.Load(ctx, req.Path)
		if err != nil {
			return MoveResult{}, fmt.Errorf("loading %s: %w", req.Path, err)
		}

		moving = loaded
	}

	if moving.Archived {
		return MoveResult{}, fmt.Errorf("%w: %s", ErrArchived, moving.Name)
	}

	if req.From == req.To && srcIdx >= 0 {
		adjusted := target
		if srcIdx < target {
			adjusted--
		}

		if adjusted == srcIdx {
			e.log.Debug("move is a no-op", zap.String("path", req.Path))

			return MoveResult{Noop: true, Index: srcIdx}, nil
		}
	}

	if srcIdx >= 0 {
		src = slices.Delete(src, srcIdx, srcIdx+1)

		if req.From == req.To {
			dst = src

			if srcIdx < target {
				target--
			}
		}
	}

	dst = slices.Insert(dst, target, moving)

	batch := e.repo.NewBatch()

	for i, it := range dst {
		patch := frontmatter.NewMap().Set(frontmatter.FieldOrder, frontmatter.IntValue(int64(i)))
		if it.Path == moving.Path {
			e.applySideEffects(patch, moving, req.To)
		}

		batch.Add(it.Path, patch)
	}

	if req.From != req.To {
		for i, it := range src {
			batch.Add(it.Path, frontmatter.NewMap().Set(frontmatter.FieldOrder, frontmatter.IntValue(int64(i))))
		}
	}

	log := e.log.With(zap.String("batch", batch.ID()), zap.String("path", req.Path))
	log.Debug("moving card",
		zap.String("from", req.From),
		zap.String("to", req.To),
		zap.Int("index", target),
		zap.Int("writes", batch.Len()),
	)

	outcome, err := e.commit(ctx, batch, fmt.Sprintf("Could not move %q", moving.Name))

	return MoveResult{Index: target, Outcome: outcome}, err
}

func containsPath(items []task.Item, path string) bool {
	return slices.ContainsFunc(items, func(it task.Item) bool { return it.Path == path })
}

func (e *Engine) applySideEffects(patch *frontmatter.Map, moving task.Item, to string) {
	if moving.Status == to {
		return
	}

	patch.Set(frontmatter.FieldStatus, frontmatter.StringValue(to))

	today := e.Today()

	if e.completed.MatchString(to) {
		patch.Set(frontmatter.FieldEndDate, frontmatter.StringValue(today))
	}

	if e.inProgress.MatchString(to) && moving.StartDate == "" {
		patch.Set(frontmatter.FieldStartDate, frontmatter.StringValue(today))
	}
}

// commit runs batch inside a suppression window. On success the committed
// documents replace their projection entries; on failure the user gets one
// notice and the projection is reloaded.
func (e *Engine) commit(ctx context.Context, batch *task.Batch, failure string) (task.Outcome, error) {
	if e.rec != nil {
		e.rec.SuppressReloads(e.window, true)

		if ex, ok := e.rec.(writeExpecter); ok {
			writes := batch.Writes()
			paths := make([]string, 0, len(writes))

			for _, w := range writes {
				paths = append(paths, w.Path)
			}

			ex.ExpectWrites(paths...)
		}
	}

	outcome := batch.Commit(ctx)

	err := outcome.Err()
	if err != nil {
		e.notifier.Notify(fmt.Sprintf("%s: %d of %d writes failed", failure, len(outcome.Failed), batch.Len()))

		if reloadErr := e.resync(ctx); reloadErr != nil {
			e.log.Error("reload after failed batch", zap.String("batch", batch.ID()), zap.Error(reloadErr))

			return outcome, errors.Join(err, reloadErr)
		}

		return outcome, err
	}

	e.proj.Mutate(func(items []task.Item) []task.Item {
		seen := make(map[string]bool, len(outcome.Items))

		for i, it := range items {
			if updated, ok := outcome.Items[it.Path]; ok {
				items[i] = updated
				seen[it.Path] = true
			}
		}

		for _, path := range outcome.Committed {
			if !seen[path] {
				items = append(items, outcome.Items[path])
			}
		}

		return items
	})

	return outcome, nil
}

func (e *Engine) resync(ctx context.Context) error {
	if e.rec != nil {
		return e.rec.ReloadNow(ctx)
	}

	return e.Reload(ctx)
}
