package reconcile_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"taskboard/internal/reconcile"
	"taskboard/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type counter struct {
	n atomic.Int32
}

func (c *counter) reload(context.Context) error {
	c.n.Add(1)

	return nil
}

func (c *counter) count() int {
	return int(c.n.Load())
}

func newManual(t *testing.T) (*reconcile.Reconciler, *testutil.Clock, *counter) {
	t.Helper()

	clock := testutil.NewClock()
	calls := &counter{}
	rec := reconcile.New(calls.reload, reconcile.Options{Clock: clock})
	t.Cleanup(rec.Close)

	return rec, clock, calls
}

func Test_Notify_Reloads_Once_When_Notifications_Arrive_Within_Debounce(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.Notify("a.md")
	clock.Advance(100 * time.Millisecond)
	rec.Notify("b.md")
	clock.Advance(299 * time.Millisecond)

	require.Equal(t, 0, calls.count(), "debounce restarts on every notification")

	clock.Advance(time.Millisecond)

	require.Equal(t, 1, calls.count())
	require.Equal(t, 2, rec.Stats().Notifications)
}

func Test_SuppressReloads_Collapses_Echoes_Into_One_Deferred_Reload(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(time.Second, false)

	for _, path := range []string{"a.md", "b.md", "a.md"} {
		clock.Advance(100 * time.Millisecond)
		rec.Notify(path)
	}

	// Debounce fires at 600ms, inside the window.
	clock.Advance(699 * time.Millisecond)
	require.Equal(t, 0, calls.count())
	require.True(t, rec.Pending())

	clock.Advance(50 * time.Millisecond)
	require.Equal(t, 0, calls.count(), "no reload before window plus grace")

	clock.Advance(time.Millisecond)
	require.Equal(t, 1, calls.count(), "exactly one reload at 1050ms")
	require.False(t, rec.Pending())

	clock.Advance(10 * time.Second)
	require.Equal(t, 1, calls.count())

	stats := rec.Stats()
	require.Equal(t, 1, stats.Deferred)
	require.Equal(t, 1, stats.Reloads)
}

func Test_SuppressReloads_Drops_Pending_Reload_When_Ignore_Is_Requested(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(time.Second, true)
	rec.Notify("a.md")

	clock.Advance(2 * time.Second)

	require.Equal(t, 0, calls.count())
	require.False(t, rec.Pending())
	require.Equal(t, 1, rec.Stats().Dropped)

	// The next external change after the window reloads normally.
	rec.Notify("a.md")
	clock.Advance(300 * time.Millisecond)
	require.Equal(t, 1, calls.count())
}

func Test_ExpectWrites_Drops_Pending_Reload_When_Only_Expected_Paths_Changed(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(time.Second, true)
	rec.ExpectWrites("/tasks/a.md", "/tasks/b.md")
	rec.Notify("/tasks/a.md")
	rec.Notify("/tasks/./b.md")

	clock.Advance(2 * time.Second)

	require.Equal(t, 0, calls.count())
	require.Equal(t, 1, rec.Stats().Dropped)
}

func Test_ExpectWrites_Reloads_After_Window_When_Another_Path_Changed(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(time.Second, true)
	rec.ExpectWrites("/tasks/a.md")
	rec.Notify("/tasks/a.md")
	rec.Notify("/tasks/c.md")

	clock.Advance(1049 * time.Millisecond)
	require.Equal(t, 0, calls.count(), "still inside window plus grace")

	clock.Advance(time.Millisecond)
	require.Equal(t, 1, calls.count())
	require.Equal(t, 0, rec.Stats().Dropped)
	require.False(t, rec.Pending())
}

func Test_SuppressReloads_Forgets_Expected_Paths_When_Window_Is_Replaced(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(time.Second, true)
	rec.ExpectWrites("/tasks/a.md")

	rec.SuppressReloads(time.Second, true)
	rec.Notify("/tasks/c.md")

	clock.Advance(2 * time.Second)

	require.Equal(t, 0, calls.count(), "no paths announced for the new window")
	require.Equal(t, 1, rec.Stats().Dropped)
}

func Test_SuppressReloads_Clears_Silently_When_Nothing_Was_Deferred(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(500*time.Millisecond, false)
	clock.Advance(time.Second)

	require.Equal(t, 0, calls.count())
	require.Equal(t, 0, clock.Pending())
}

func Test_SuppressReloads_Extends_Window_When_Called_Again(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.SuppressReloads(time.Second, false)
	rec.Notify("a.md")
	clock.Advance(800 * time.Millisecond)

	rec.SuppressReloads(time.Second, false)
	clock.Advance(1049 * time.Millisecond)
	require.Equal(t, 0, calls.count(), "first window's timer must not fire")

	clock.Advance(time.Millisecond)
	require.Equal(t, 1, calls.count())
}

func Test_Close_Stops_Timers_When_Reload_Is_Scheduled(t *testing.T) {
	t.Parallel()

	rec, clock, calls := newManual(t)

	rec.Notify("a.md")
	rec.SuppressReloads(time.Second, false)
	rec.Close()
	rec.Notify("b.md")

	clock.Advance(5 * time.Second)

	require.Equal(t, 0, calls.count())
	require.Equal(t, 0, clock.Pending())
}

func Test_ReloadNow_Logs_And_Counts_Failure_When_Reload_Errors(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	core, logs := observer.New(zap.ErrorLevel)
	clock := testutil.NewClock()

	rec := reconcile.New(func(context.Context) error { return errBoom }, reconcile.Options{
		Clock:  clock,
		Logger: zap.New(core),
	})
	defer rec.Close()

	err := rec.ReloadNow(context.Background())
	require.ErrorIs(t, err, errBoom)

	rec.Notify("a.md")
	clock.Advance(300 * time.Millisecond)

	require.Equal(t, 2, rec.Stats().Failed)
	require.Equal(t, 1, logs.FilterMessage("reload failed").Len())
}

func Test_Reconciler_Reloads_When_Using_Real_Clock(t *testing.T) {
	t.Parallel()

	done := make(chan struct{}, 1)

	rec := reconcile.New(func(context.Context) error {
		done <- struct{}{}

		return nil
	}, reconcile.Options{Debounce: 10 * time.Millisecond})
	defer rec.Close()

	rec.Notify("a.md")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reload did not run")
	}
}
