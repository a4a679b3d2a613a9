package task

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/frontmatter"
	"taskboard/internal/metacache"
	"taskboard/pkg/fs"
)

// DefaultNumberField is the metadata key holding an item's human-readable
// number ("CR-12").
const DefaultNumberField = frontmatter.FieldNumber

const (
	listWorkers  = 16
	documentPerm = 0o644
	dirPerm      = 0o755
)

// Options configures a [Repository]. Zero values select defaults.
type Options struct {
	Schema      frontmatter.Schema
	NumberField string
	Now         func() time.Time
	Logger      *zap.Logger
}

// Repository reads and writes task documents through an [fs.FS]. Parsed
// blocks are served from a [metacache.Cache].
//
// Repository is safe for concurrent use.
type Repository struct {
	fs          fs.FS
	cache       *metacache.Cache
	schema      frontmatter.Schema
	numberField string
	now         func() time.Time
	log         *zap.Logger
}

// NewRepository returns a repository over fsys. If cache is nil a new one is
// created.
func NewRepository(fsys fs.FS, cache *metacache.Cache, opts Options) *Repository {
	if cache == nil {
		cache = metacache.New(fsys)
	}

	if opts.Schema == nil {
		opts.Schema = frontmatter.DefaultSchema()
	}

	if opts.NumberField == "" {
		opts.NumberField = DefaultNumberField
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Repository{
		fs:          fsys,
		cache:       cache,
		schema:      opts.Schema,
		numberField: opts.NumberField,
		now:         opts.Now,
		log:         opts.Logger,
	}
}

// Cache returns the metadata cache used by the repository.
func (r *Repository) Cache() *metacache.Cache { return r.cache }

// Schema returns the field kinds used to read and write items.
func (r *Repository) Schema() frontmatter.Schema { return r.schema }

// NumberField returns the metadata key holding item numbers.
func (r *Repository) NumberField() string { return r.numberField }

// ListItems returns the documents directly inside dir, sorted by filename.
// Subdirectories and hidden files are skipped. A missing dir yields an empty
// list.
//
// Documents whose block cannot be parsed are listed with an empty Meta and
// Warning set.
func (r *Repository) ListItems(ctx context.Context, dir string) ([]Item, error) {
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Item{}, nil
		}

		return nil, fmt.Errorf("reading task directory: %w", err)
	}

	paths := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, DocumentExt) {
			continue
		}

		paths = append(paths, filepath.Join(dir, name))
	}

	results := make([]*Item, len(paths))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(listWorkers)

	for idx, path := range paths {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			it, err := r.load(path)
			if errors.Is(err, ErrMissingDocument) {
				// Deleted between ReadDir and read.
				return nil
			}

			if err != nil {
				r.log.Warn("unreadable task document", zap.String("path", path), zap.Error(err))
				it = newItem(path, nil, "", r.schema, r.numberField)
				it.Warning = err
			}

			results[idx] = &it

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(results))

	for _, it := range results {
		if it != nil {
			items = append(items, *it)
		}
	}

	return items, nil
}

// Loader returns a [LoadFunc] listing dir, for [Projection.Reload].
func (r *Repository) Loader(dir string) LoadFunc {
	return func(ctx context.Context) ([]Item, error) {
		return r.ListItems(ctx, dir)
	}
}

// Load materializes the single document at path.
func (r *Repository) Load(ctx context.Context, path string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	return r.load(path)
}

func (r *Repository) load(path string) (Item, error) {
	block, err := r.cache.Get(path)

	switch {
	case err == nil:
	case errors.Is(err, metacache.ErrUnparseableMetadata):
		it := newItem(path, frontmatter.NewMap(), block.Body, r.schema, r.numberField)
		it.Warning = err

		return it, nil
	case errors.Is(err, os.ErrNotExist):
		return Item{}, fmt.Errorf("%w: %s", ErrMissingDocument, path)
	default:
		return Item{}, err
	}

	return newItem(path, block.Meta.Clone(), block.Body, r.schema, r.numberField), nil
}

// AllTags returns the sorted, deduplicated union of every item's tags.
func (r *Repository) AllTags(ctx context.Context, dir string) ([]string, error) {
	items, err := r.ListItems(ctx, dir)
	if err != nil {
		return nil, err
	}

	tags := []string{}
	for _, it := range items {
		tags = append(tags, it.Tags...)
	}

	slices.Sort(tags)

	return slices.Compact(tags), nil
}

// FindByNumber returns the first item whose field equals value, ignoring
// case. When no field matches, the first item whose filename starts with
// value followed by a space is returned.
//
// Duplicate numbers resolve to the first item in filename order.
func (r *Repository) FindByNumber(ctx context.Context, dir, field, value string) (Item, error) {
	if field == "" {
		field = r.numberField
	}

	items, err := r.ListItems(ctx, dir)
	if err != nil {
		return Item{}, err
	}

	for _, it := range items {
		if got, ok := it.Meta.GetText(field); ok && strings.EqualFold(strings.TrimSpace(got), value) {
			return it, nil
		}
	}

	for _, it := range items {
		if strings.HasPrefix(it.Name, value+" ") {
			return it, nil
		}
	}

	return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, value)
}

// NextNumber returns prefix-(max+1), where max is the largest integer found
// as "prefix-<n>" in field or at the start of a filename. Without matches it
// returns prefix-1.
func (r *Repository) NextNumber(ctx context.Context, dir, field, prefix string) (string, error) {
	if field == "" {
		field = r.numberField
	}

	items, err := r.ListItems(ctx, dir)
	if err != nil {
		return "", err
	}

	pattern := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(prefix) + `-(\d+)\b`)

	var highest int64

	scan := func(s string) {
		m := pattern.FindStringSubmatch(strings.TrimSpace(s))
		if m == nil {
			return
		}

		n, err := strconv.ParseInt(m[1], 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}

	for _, it := range items {
		if got, ok := it.Meta.GetText(field); ok {
			scan(got)
		}

		scan(it.Name)
	}

	return prefix + "-" + strconv.FormatInt(highest+1, 10), nil
}

// Create writes a new document named after title into dir. fields become
// the metadata block, with createdAt stamped to the current time. An empty
// body defaults to a level-one heading with the title.
func (r *Repository) Create(ctx context.Context, dir, title string, fields *frontmatter.Map, body string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	title = strings.TrimSpace(title)

	if title == "" {
		return Item{}, ErrTitleRequired
	}

	if strings.ContainsAny(title, `/\`) || strings.HasPrefix(title, ".") {
		return Item{}, fmt.Errorf("%w: %q", ErrInvalidTitle, title)
	}

	path := filepath.Join(dir, title+DocumentExt)

	exists, err := r.fs.Exists(path)
	if err != nil {
		return Item{}, fmt.Errorf("checking %s: %w", path, err)
	}

	if exists {
		return Item{}, fmt.Errorf("%w: %s", ErrDocumentExists, path)
	}

	err = r.fs.MkdirAll(dir, dirPerm)
	if err != nil {
		return Item{}, fmt.Errorf("creating task directory: %w", err)
	}

	meta := fields.Clone()
	meta.Delete(frontmatter.FieldCreatedAt)
	meta.Set(frontmatter.FieldCreatedAt, frontmatter.StringValue(r.now().UTC().Format(time.RFC3339)))
	dropNulls(meta)

	if body == "" {
		body = "# " + title + "\n"
	}

	doc := frontmatter.Rewrite(body, nil, frontmatter.Serialize(meta, r.schema))

	err = r.fs.WriteFileAtomic(path, []byte(doc), documentPerm)
	if err != nil {
		return Item{}, fmt.Errorf("writing %s: %w", path, err)
	}

	r.cache.Invalidate(path)
	r.log.Debug("task created", zap.String("path", path))

	return newItem(path, meta, body, r.schema, r.numberField), nil
}

// Delete removes the document at path.
func (r *Repository) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.fs.Remove(path)

	r.cache.Invalidate(path)

	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissingDocument, path)
	}

	if err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}

	r.log.Debug("task deleted", zap.String("path", path))

	return nil
}

// Patch merges patch into the metadata block of the document at path and
// atomically replaces the document. Null values in patch delete fields.
// Everything outside the block is kept byte for byte.
//
// A createdAt value in patch is ignored when the document already has one.
//
// Returns [ErrMissingDocument] when the document is gone, and an error
// wrapping [metacache.ErrUnparseableMetadata] when its block exists but
// cannot be parsed; the document is left untouched in that case so keys the
// parser could not read are not lost.
func (r *Repository) Patch(ctx context.Context, path string, patch *frontmatter.Map) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}

	data, err := r.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Item{}, fmt.Errorf("%w: %s", ErrMissingDocument, path)
		}

		return Item{}, fmt.Errorf("reading %s: %w", path, err)
	}

	block, err := metacache.Parse(data)
	if err != nil {
		return Item{}, fmt.Errorf("patching %s: %w", path, err)
	}

	if v, ok := block.Meta.Get(frontmatter.FieldCreatedAt); ok && !v.IsNull() {
		if _, ok := patch.Get(frontmatter.FieldCreatedAt); ok {
			patch = patch.Clone()
			patch.Delete(frontmatter.FieldCreatedAt)
		}
	}

	doc, merged := frontmatter.Apply(string(data), block.Meta, block.Pos, patch, r.schema)

	err = r.fs.WriteFileAtomic(path, []byte(doc), documentPerm)

	r.cache.Invalidate(path)

	if err != nil {
		return Item{}, fmt.Errorf("writing %s: %w", path, err)
	}

	dropNulls(merged)

	return newItem(path, merged, block.Body, r.schema, r.numberField), nil
}

func dropNulls(m *frontmatter.Map) {
	for _, key := range m.Keys() {
		if v, _ := m.Get(key); v.IsNull() {
			m.Delete(key)
		}
	}
}
