// Package reconcile decides when the in-memory task list must be rebuilt
// from disk.
//
// Change notifications arrive for every document write, including the
// program's own. A board move can write a dozen documents; reloading on each
// echo would rebuild the list mid-interaction. The [Reconciler] debounces
// notifications and lets a writer open a suppression window before it
// writes: echoes that land inside the window are folded into at most one
// deferred reload, or dropped when the writer has already applied the same
// change in memory.
package reconcile

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Defaults for [Options].
const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultGrace    = 50 * time.Millisecond
)

// ReloadFunc rebuilds the projection.
type ReloadFunc func(ctx context.Context) error

// Options configures a [Reconciler]. Zero values select defaults.
type Options struct {
	Clock    Clock
	Debounce time.Duration
	Grace    time.Duration
	Logger   *zap.Logger
}

// Stats counts reconciler decisions.
type Stats struct {
	Notifications int
	Reloads       int
	Deferred      int
	Dropped       int
	Failed        int
}

// Reconciler debounces change notifications and arbitrates them against
// suppression windows. It is safe for concurrent use.
type Reconciler struct {
	clock    Clock
	debounce time.Duration
	grace    time.Duration
	reload   ReloadFunc
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// reloadMu serializes reload calls.
	reloadMu sync.Mutex

	mu            sync.Mutex
	closed        bool
	suppressUntil time.Time
	pendingReload bool
	ignorePending bool
	changed       map[string]struct{}
	// expected holds the paths the current window's writer announced; nil
	// when it announced none.
	expected      map[string]struct{}
	foreign       bool
	debounceTimer Timer
	debounceGen   uint64
	suppressTimer Timer
	suppressGen   uint64
	stats         Stats
}

// New returns a reconciler calling reload when a rebuild is due.
func New(reload ReloadFunc, opts Options) *Reconciler {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Reconciler{
		clock:    opts.Clock,
		debounce: opts.Debounce,
		grace:    opts.Grace,
		reload:   reload,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		changed:  make(map[string]struct{}),
	}
}

// Notify records an external change to path. The decision is taken once no
// further notification has arrived for the debounce interval.
func (r *Reconciler) Notify(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.stats.Notifications++
	r.changed[filepath.Clean(path)] = struct{}{}

	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}

	r.debounceGen++
	gen := r.debounceGen
	r.debounceTimer = r.clock.AfterFunc(r.debounce, func() { r.onDebounced(gen) })
}

func (r *Reconciler) onDebounced(gen uint64) {
	r.mu.Lock()

	if r.closed || gen != r.debounceGen {
		r.mu.Unlock()

		return
	}

	r.debounceTimer = nil
	paths := r.takeChangedLocked()

	if r.clock.Now().Before(r.suppressUntil) {
		r.pendingReload = true
		r.stats.Deferred++

		if r.expected != nil {
			for _, p := range paths {
				if _, ok := r.expected[p]; !ok {
					r.foreign = true

					break
				}
			}
		}

		foreign := r.foreign
		r.mu.Unlock()

		r.log.Debug("reload deferred by suppression window",
			zap.Strings("paths", paths),
			zap.Bool("foreign", foreign),
		)

		return
	}

	r.pendingReload = false
	r.ignorePending = false
	r.foreign = false
	r.mu.Unlock()

	r.runReload("change", paths)
}

// SuppressReloads opens a window of length d during which debounced
// notifications only mark a reload as pending. Once d plus a short grace
// period has passed, one reload runs if any notification was deferred and
// ignorePending is false; otherwise the pending state is cleared silently.
//
// Call it right before issuing writes whose echoes should not trigger a
// rebuild. A later call replaces the window and the ignorePending choice,
// and forgets paths announced with [Reconciler.ExpectWrites].
func (r *Reconciler) SuppressReloads(d time.Duration, ignorePending bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.suppressUntil = r.clock.Now().Add(d)
	r.ignorePending = ignorePending
	r.expected = nil
	r.foreign = false

	if r.suppressTimer != nil {
		r.suppressTimer.Stop()
	}

	r.suppressGen++
	gen := r.suppressGen
	r.suppressTimer = r.clock.AfterFunc(d+r.grace, func() { r.onSuppressEnd(gen) })
}

// ExpectWrites announces the documents the current window's writer is about
// to write. With ignorePending set, a deferred reload is then dropped only
// when every notification in the window was for one of these paths; a change
// to any other document still reloads once the window closes.
func (r *Reconciler) ExpectWrites(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	if r.expected == nil {
		r.expected = make(map[string]struct{}, len(paths))
	}

	for _, p := range paths {
		r.expected[filepath.Clean(p)] = struct{}{}
	}
}

func (r *Reconciler) onSuppressEnd(gen uint64) {
	r.mu.Lock()

	if r.closed || gen != r.suppressGen {
		r.mu.Unlock()

		return
	}

	r.suppressTimer = nil
	fire := r.pendingReload && (!r.ignorePending || r.foreign)
	dropped := r.pendingReload && !fire

	r.pendingReload = false
	r.ignorePending = false
	r.expected = nil
	r.foreign = false

	if dropped {
		r.stats.Dropped++
	}

	r.mu.Unlock()

	if fire {
		r.runReload("deferred", nil)

		return
	}

	if dropped {
		r.log.Debug("deferred reload dropped")
	}
}

// ReloadNow runs a reload immediately, regardless of any window, and
// clears the pending state. Used to resynchronize after a failed write.
func (r *Reconciler) ReloadNow(ctx context.Context) error {
	r.mu.Lock()
	r.pendingReload = false
	r.mu.Unlock()

	return r.doReload(ctx, "forced", nil)
}

// Pending reports whether a deferred reload is waiting for the window to
// close.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pendingReload
}

// Stats returns a copy of the counters.
func (r *Reconciler) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stats
}

// Close stops all timers. Pending reloads are discarded and later calls
// are ignored. A reload already running completes before Close returns, so
// Close must not be called from the reload function.
func (r *Reconciler) Close() {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()

		return
	}

	r.closed = true

	if r.debounceTimer != nil {
		r.debounceTimer.Stop()
	}

	if r.suppressTimer != nil {
		r.suppressTimer.Stop()
	}

	r.mu.Unlock()

	r.cancel()

	// Wait for an in-flight reload.
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()
}

func (r *Reconciler) runReload(reason string, paths []string) {
	err := r.doReload(r.ctx, reason, paths)
	if err != nil && r.ctx.Err() == nil {
		r.log.Error("reload failed", zap.String("reason", reason), zap.Error(err))
	}
}

func (r *Reconciler) doReload(ctx context.Context, reason string, paths []string) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	r.log.Debug("reloading", zap.String("reason", reason), zap.Strings("paths", paths))

	err := r.reload(ctx)

	r.mu.Lock()
	if err != nil {
		r.stats.Failed++
	} else {
		r.stats.Reloads++
	}
	r.mu.Unlock()

	return err
}

func (r *Reconciler) takeChangedLocked() []string {
	paths := make([]string, 0, len(r.changed))
	for p := range r.changed {
		paths = append(paths, p)
	}

	clear(r.changed)
	slices.Sort(paths)

	return paths
}
