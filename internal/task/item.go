// Package task reads task documents from a directory into [Item] values and
// writes metadata patches back to them.
//
// A task document is a markdown file with an optional metadata block:
//
//	---
//	status: In Progress
//	order: 0
//	number: CR-12
//	tags: [backend]
//	---
//
//	# Login page
//
//	- [x] design
//	- [ ] implement
//
// The document is the source of truth. An [Item] is a snapshot of it and may
// be briefly stale; [Projection] holds the shared list of items.
package task

import (
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"taskboard/internal/frontmatter"
)

// DocumentExt is the extension of task documents.
const DocumentExt = ".md"

// Subtask is one checklist line of a document body.
type Subtask struct {
	Text      string
	Completed bool
}

// Item is a task document materialized from its metadata block and body.
// Path is its identity.
type Item struct {
	Path string
	Name string

	Status   string
	Priority string
	Order    int
	HasOrder bool

	CreatedAt string
	StartDate string
	EndDate   string
	Tags      []string
	Archived  bool
	Number    string

	Subtasks []Subtask

	// Meta is the full parsed block. Empty, never nil, when the block is
	// missing or unparseable.
	Meta *frontmatter.Map

	// Warning is set when the block could not be parsed. The item is still
	// listed with an empty Meta.
	Warning error
}

// Clone returns a deep copy of it.
func (it Item) Clone() Item {
	it.Tags = slices.Clone(it.Tags)
	it.Subtasks = slices.Clone(it.Subtasks)
	it.Meta = it.Meta.Clone()

	return it
}

// DisplayName derives the item name shown to users from a document path.
func DisplayName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), DocumentExt)
}

var subtaskLine = regexp.MustCompile(`^\s*- \[( |x|X)\] (.*)$`)

// ParseSubtasks extracts checklist lines from a document body, in order.
func ParseSubtasks(body string) []Subtask {
	var out []Subtask

	for line := range strings.SplitSeq(body, "\n") {
		m := subtaskLine.FindStringSubmatch(strings.TrimSuffix(line, "\r"))
		if m == nil {
			continue
		}

		out = append(out, Subtask{Text: m[2], Completed: m[1] != " "})
	}

	return out
}

// newItem builds an item from a parsed document. Fields are read through
// schema so a hand-edited block ("order: '3'", "tags: a, b") still maps to
// the declared kind.
func newItem(path string, meta *frontmatter.Map, body string, schema frontmatter.Schema, numberField string) Item {
	if meta == nil {
		meta = frontmatter.NewMap()
	}

	it := Item{
		Path:     path,
		Name:     DisplayName(path),
		Meta:     meta,
		Subtasks: ParseSubtasks(body),
	}

	it.Status = textField(meta, schema, frontmatter.FieldStatus)
	it.Priority = textField(meta, schema, frontmatter.FieldPriority)
	it.CreatedAt = textField(meta, schema, frontmatter.FieldCreatedAt)
	it.StartDate = textField(meta, schema, frontmatter.FieldStartDate)
	it.EndDate = textField(meta, schema, frontmatter.FieldEndDate)
	it.Number = textField(meta, schema, numberField)

	if n, ok := meta.GetInt(frontmatter.FieldOrder); ok {
		it.Order, it.HasOrder = int(n), true
	}

	if v, ok := meta.Get(frontmatter.FieldTags); ok {
		if coerced, ok := schema.KindOf(frontmatter.FieldTags).Coerce(v); ok && coerced.Kind == frontmatter.ValueList {
			it.Tags = slices.Clone(coerced.List)
		}
	}

	if v, ok := meta.Get(frontmatter.FieldArchived); ok {
		if coerced, ok := frontmatter.KindBool.Coerce(v); ok && coerced.Kind == frontmatter.ValueScalar {
			it.Archived = coerced.Scalar.Bool
		}
	}

	return it
}

func textField(meta *frontmatter.Map, schema frontmatter.Schema, key string) string {
	if key == "" {
		return ""
	}

	v, ok := meta.Get(key)
	if !ok {
		return ""
	}

	coerced, ok := schema.KindOf(key).Coerce(v)
	if !ok || coerced.Kind != frontmatter.ValueScalar {
		return ""
	}

	return coerced.Scalar.Text()
}
