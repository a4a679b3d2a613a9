// Package config loads taskboard settings from JSONC files and persists the
// board's column labels back to the project file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tailscale/hujson"

	"taskboard/internal/board"
	"taskboard/internal/frontmatter"
)

// FileName is the project config file looked up in the working directory.
const FileName = ".taskboard.json"

var (
	ErrFileNotFound   = errors.New("config file not found")
	ErrFileRead       = errors.New("cannot read config file")
	ErrInvalid        = errors.New("invalid config file")
	ErrTaskDirEmpty   = errors.New("task_dir cannot be empty")
	ErrInvalidPattern = errors.New("invalid status pattern")
	ErrNegative       = errors.New("value must not be negative")
)

// Config holds all configuration options.
type Config struct {
	TaskDir           string   `json:"task_dir"`
	Statuses          []string `json:"statuses,omitempty"`
	CompletedPattern  string   `json:"completed_pattern,omitempty"`
	InProgressPattern string   `json:"in_progress_pattern,omitempty"`
	NumberField       string   `json:"number_field,omitempty"`
	NumberPrefix      string   `json:"number_prefix,omitempty"`
	SuppressWindowMS  int      `json:"suppress_window_ms,omitempty"`
	VisibleLanes      int      `json:"visible_lanes,omitempty"`
	CalendarStart     string   `json:"calendar_start_field,omitempty"`
	CalendarEnd       string   `json:"calendar_end_field,omitempty"`

	EffectiveCwd string `json:"-"` // from -C or os.Getwd
	TaskDirAbs   string `json:"-"`

	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string
	Project string
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		TaskDir:           "tasks",
		Statuses:          append([]string(nil), board.DefaultStatuses...),
		CompletedPattern:  board.DefaultCompletedPattern.String(),
		InProgressPattern: board.DefaultInProgressPattern.String(),
		NumberField:       frontmatter.FieldNumber,
		NumberPrefix:      "CR",
		SuppressWindowMS:  int(board.DefaultSuppressWindow / time.Millisecond),
		VisibleLanes:      3,
		CalendarStart:     frontmatter.FieldPlannedStart,
		CalendarEnd:       frontmatter.FieldPlannedEnd,
	}
}

// SuppressWindow returns the configured echo-suppression window.
func (c Config) SuppressWindow() time.Duration {
	return time.Duration(c.SuppressWindowMS) * time.Millisecond
}

// StatusFile returns the file column label edits are written to: the file
// that supplied the project settings, or FileName in the working directory.
func (c Config) StatusFile() string {
	if c.Sources.Project != "" {
		return c.Sources.Project
	}

	return filepath.Join(c.EffectiveCwd, FileName)
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string // -C/--cwd; os.Getwd when empty
	ConfigPath      string // -c/--config
	TaskDirOverride string // --task-dir
	HasTaskDir      bool   // --task-dir was given, even if empty
	Env             map[string]string
}

// Load resolves configuration with the following precedence (highest wins):
//  1. Defaults
//  2. Global user config ($XDG_CONFIG_HOME/taskboard/config.json or
//     ~/.config/taskboard/config.json)
//  3. Project config (.taskboard.json, if present)
//  4. Explicit config file via -c
//  5. CLI overrides
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		fileCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg = merge(cfg, fileCfg)
			cfg.Sources.Global = path
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false

	if input.ConfigPath != "" {
		projectPath, mustExist = input.ConfigPath, true
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
	}

	fileCfg, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg = merge(cfg, fileCfg)
		cfg.Sources.Project = projectPath
	}

	if input.HasTaskDir {
		cfg.TaskDir = input.TaskDirOverride
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir

	cfg.TaskDirAbs = cfg.TaskDir
	if !filepath.IsAbs(cfg.TaskDirAbs) {
		cfg.TaskDirAbs = filepath.Join(workDir, cfg.TaskDir)
	}

	return cfg, nil
}

func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "taskboard", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "taskboard", "config.json")
	}

	return ""
}

// overlay is a config file as written: pointers distinguish absent keys
// from explicit zero values.
type overlay struct {
	TaskDir           *string  `json:"task_dir"`
	Statuses          []string `json:"statuses"`
	CompletedPattern  *string  `json:"completed_pattern"`
	InProgressPattern *string  `json:"in_progress_pattern"`
	NumberField       *string  `json:"number_field"`
	NumberPrefix      *string  `json:"number_prefix"`
	SuppressWindowMS  *int     `json:"suppress_window_ms"`
	VisibleLanes      *int     `json:"visible_lanes"`
	CalendarStart     *string  `json:"calendar_start_field"`
	CalendarEnd       *string  `json:"calendar_end_field"`
}

func loadFile(path string, mustExist bool) (overlay, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return overlay{}, false, nil
		}

		if os.IsNotExist(err) {
			return overlay{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}

		return overlay{}, false, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	parsed, err := parse(data)
	if err != nil {
		return overlay{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	if parsed.TaskDir != nil && *parsed.TaskDir == "" {
		return overlay{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, ErrTaskDirEmpty)
	}

	return parsed, true, nil
}

func parse(data []byte) (overlay, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return overlay{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var o overlay

	if err := json.Unmarshal(standardized, &o); err != nil {
		return overlay{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return o, nil
}

func merge(base Config, o overlay) Config {
	setString := func(dst *string, src *string) {
		if src != nil && *src != "" {
			*dst = *src
		}
	}

	setString(&base.TaskDir, o.TaskDir)
	setString(&base.CompletedPattern, o.CompletedPattern)
	setString(&base.InProgressPattern, o.InProgressPattern)
	setString(&base.NumberField, o.NumberField)
	setString(&base.NumberPrefix, o.NumberPrefix)
	setString(&base.CalendarStart, o.CalendarStart)
	setString(&base.CalendarEnd, o.CalendarEnd)

	if len(o.Statuses) > 0 {
		base.Statuses = append([]string(nil), o.Statuses...)
	}

	if o.SuppressWindowMS != nil {
		base.SuppressWindowMS = *o.SuppressWindowMS
	}

	if o.VisibleLanes != nil {
		base.VisibleLanes = *o.VisibleLanes
	}

	return base
}

func validate(cfg Config) error {
	if cfg.TaskDir == "" {
		return ErrTaskDirEmpty
	}

	for _, p := range []string{cfg.CompletedPattern, cfg.InProgressPattern} {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
		}
	}

	if cfg.SuppressWindowMS < 0 {
		return fmt.Errorf("suppress_window_ms: %w", ErrNegative)
	}

	if cfg.VisibleLanes < 0 {
		return fmt.Errorf("visible_lanes: %w", ErrNegative)
	}

	return nil
}
