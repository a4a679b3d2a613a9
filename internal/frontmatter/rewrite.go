package frontmatter

import "strings"

// Position is the byte range of an existing block inside a document.
// Start is the first byte of the opening marker, End is the byte just past
// the closing marker (before its line break).
type Position struct {
	Start int
	End   int
}

// Rewrite replaces the block at pos with block. Exactly one line break
// separates the new block from the rest of the document.
//
// With pos == nil the document has no block yet: block is prepended,
// followed by a blank line when the document is non-empty, or by a single
// line break when it is empty.
func Rewrite(doc string, pos *Position, block string) string {
	if pos == nil {
		if doc == "" {
			return block + "\n"
		}

		return block + "\n\n" + doc
	}

	rest := doc[pos.End:]

	switch {
	case strings.HasPrefix(rest, "\r\n"):
		rest = rest[2:]
	case strings.HasPrefix(rest, "\n"):
		rest = rest[1:]
	}

	return doc[:pos.Start] + block + "\n" + rest
}

// Apply merges patch into current, serializes the result and rewrites doc.
// It returns the new document text and the merged mapping.
func Apply(doc string, current *Map, pos *Position, patch *Map, schema Schema) (string, *Map) {
	merged := Merge(current, patch)

	return Rewrite(doc, pos, Serialize(merged, schema)), merged
}
