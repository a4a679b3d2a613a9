package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/metacache"
	"taskboard/internal/task"
	"taskboard/pkg/fs"
)

var (
	errRefRequired = errors.New("task reference required")
	errExtraArgs   = errors.New("too many arguments")
)

// app holds what every command shares: resolved config, the document
// store and the repository over it.
type app struct {
	cfg      config.Config
	in       io.Reader
	env      map[string]string
	log      *zap.Logger
	fsys     fs.FS
	repo     *task.Repository
	settings *config.StatusFileStore
	now      func() time.Time
}

func newApp(cfg config.Config, in io.Reader, env map[string]string, log *zap.Logger) *app {
	fsys := fs.NewReal()

	return &app{
		cfg:  cfg,
		in:   in,
		env:  env,
		log:  log,
		fsys: fsys,
		repo: task.NewRepository(fsys, metacache.New(fsys), task.Options{
			NumberField: cfg.NumberField,
			Logger:      log.Named("repo"),
		}),
		settings: config.NewStatusFileStore(fsys, cfg.StatusFile()),
		now:      time.Now,
	}
}

func (a *app) commands() []*Command {
	return []*Command{
		LsCmd(a),
		TagsCmd(a),
		FindCmd(a),
		NextCmd(a),
		CreateCmd(a),
		SetCmd(a),
		ShowCmd(a),
		RmCmd(a),
		BoardCmd(a),
		MoveCmd(a),
		StatusCmd(a),
		CalendarCmd(a),
		WatchCmd(a),
		ShellCmd(a),
		PrintConfigCmd(&a.cfg),
	}
}

// newEngine loads the task directory into a fresh projection and returns a
// board engine over it. rec may be nil for one-shot commands.
func (a *app) newEngine(ctx context.Context, rec board.Reconciler, notifier board.Notifier) (*board.Engine, error) {
	items, err := a.repo.ListItems(ctx, a.cfg.TaskDirAbs)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	// Patterns were validated when the config was loaded.
	completed := regexp.MustCompile(a.cfg.CompletedPattern)
	inProgress := regexp.MustCompile(a.cfg.InProgressPattern)

	return board.NewEngine(a.repo, task.NewProjection(items), board.Options{
		Dir:               a.cfg.TaskDirAbs,
		Statuses:          a.cfg.Statuses,
		Settings:          a.settings,
		CompletedPattern:  completed,
		InProgressPattern: inProgress,
		SuppressWindow:    a.cfg.SuppressWindow(),
		Reconciler:        rec,
		Notifier:          notifier,
		Now:               a.now,
		Logger:            a.log.Named("board"),
	}), nil
}

// resolve finds a task by number, by the start of its file name, or by its
// exact file name.
func (a *app) resolve(ctx context.Context, ref string) (task.Item, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return task.Item{}, errRefRequired
	}

	it, err := a.repo.FindByNumber(ctx, a.cfg.TaskDirAbs, a.cfg.NumberField, ref)
	if err == nil {
		return it, nil
	}

	if !errors.Is(err, task.ErrItemNotFound) {
		return task.Item{}, err
	}

	name := ref
	if !strings.HasSuffix(name, task.DocumentExt) {
		name += task.DocumentExt
	}

	it, err = a.repo.Load(ctx, filepath.Join(a.cfg.TaskDirAbs, filepath.Base(name)))
	if errors.Is(err, task.ErrMissingDocument) {
		return task.Item{}, fmt.Errorf("%w: %s", task.ErrItemNotFound, ref)
	}

	return it, err
}

// warnItems reports documents whose metadata could not be read and returns
// the rest.
func warnItems(o *IO, items []task.Item) []task.Item {
	return slices.DeleteFunc(items, func(it task.Item) bool {
		if it.Warning == nil {
			return false
		}

		o.Warn(fmt.Sprintf("%s: %v", it.Path, it.Warning), "fix the metadata block or delete the file")

		return true
	})
}

// columnOf returns the column a card is rendered in.
func columnOf(eng *board.Engine, path string) string {
	buckets := eng.Buckets()

	for _, b := range buckets {
		if slices.ContainsFunc(b.Items, func(it task.Item) bool { return it.Path == path }) {
			return b.Label
		}
	}

	if len(buckets) == 0 {
		return ""
	}

	return buckets[0].Label
}
