package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/board"
	"taskboard/internal/reconcile"
	"taskboard/internal/task"
)

// session keeps one projection live against the task directory: a watcher
// feeds the reconciler, which reloads the board engine's projection.
type session struct {
	eng *board.Engine
	rec *reconcile.Reconciler

	group  *errgroup.Group
	cancel context.CancelFunc
}

// openSession loads the board and starts watching. onReload, if set, runs
// after every successful background reload.
func (a *app) openSession(ctx context.Context, notifier board.Notifier, onReload func(*board.Engine)) (*session, error) {
	err := a.fsys.MkdirAll(a.cfg.TaskDirAbs, 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating task directory: %w", err)
	}

	var eng *board.Engine

	rec := reconcile.New(func(ctx context.Context) error {
		if err := eng.Reload(ctx); err != nil {
			return err
		}

		if onReload != nil {
			onReload(eng)
		}

		return nil
	}, reconcile.Options{Logger: a.log.Named("reconcile")})

	eng, err = a.newEngine(ctx, rec, notifier)
	if err != nil {
		rec.Close()

		return nil, err
	}

	watcher, err := reconcile.NewWatcher(a.cfg.TaskDirAbs, task.DocumentExt, func(path string) {
		a.repo.Cache().Invalidate(path)
		rec.Notify(path)
	}, a.log.Named("watch"))
	if err != nil {
		rec.Close()

		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(runCtx)

	group.Go(func() error { return watcher.Run(gctx) })

	return &session{eng: eng, rec: rec, group: group, cancel: cancel}, nil
}

// Close stops the watcher and waits for an in-flight reload.
func (s *session) Close() error {
	s.cancel()

	err := s.group.Wait()

	s.rec.Close()

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// WatchCmd returns the watch command.
func WatchCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("watch", flag.ContinueOnError),
		Usage: "watch",
		Group: groupSession,
		Args:  noArgs,
		Short: "Print column counts whenever the task directory changes",
		Long: "Watch the task directory and print a summary after each reload. Bursts of changes " +
			"are debounced into one reload. Stops on interrupt.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			s, err := a.openSession(ctx, warnNotifier(o), func(eng *board.Engine) {
				o.Println(summarize(eng.Buckets()))
			})
			if err != nil {
				return err
			}

			o.Println("watching", a.cfg.TaskDirAbs)
			o.Println(summarize(s.eng.Buckets()))

			<-ctx.Done()

			a.log.Debug("watch stopped", zap.Any("stats", s.rec.Stats()))

			return s.Close()
		},
	}
}

func summarize(buckets []board.Bucket) string {
	line := ""

	for i, b := range buckets {
		if i > 0 {
			line += " | "
		}

		line += fmt.Sprintf("%s: %d", b.Label, len(b.Items))
	}

	return line
}
