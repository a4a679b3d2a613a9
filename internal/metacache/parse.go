// Package metacache parses the metadata block of task documents and caches
// the result per path.
//
// Parsing splits the block on its marker lines and decodes the content with
// gopkg.in/yaml.v3 into a node tree, so key order survives into the
// resulting [frontmatter.Map]. The byte offsets of the block are reported
// alongside, which is what the write side needs to replace it in place.
package metacache

import (
	"bytes"
	"errors"
	"fmt"

	"taskboard/internal/frontmatter"

	"gopkg.in/yaml.v3"
)

// ErrUnparseableMetadata is returned when a block exists but its content is
// not a flat mapping of scalars and scalar lists.
var ErrUnparseableMetadata = errors.New("unparseable metadata")

// Block is a parsed document.
type Block struct {
	// Meta is the parsed mapping. Never nil; empty when the document has no
	// block or the block is unparseable.
	Meta *frontmatter.Map

	// Pos is the byte range of the block, nil when the document has none.
	Pos *frontmatter.Position

	// Body is everything after the block's closing line.
	Body string
}

// Parse splits doc into block and body and decodes the block.
//
// A block starts with a first line that is exactly "---" and ends at the
// next line that is exactly "---". An unterminated opening marker means the
// document has no block.
//
// When the block cannot be decoded the returned Block still carries Pos and
// Body, with an empty Meta, and the error wraps [ErrUnparseableMetadata].
func Parse(doc []byte) (Block, error) {
	block := Block{Meta: frontmatter.NewMap(), Body: string(doc)}

	first, rest, ok := cutLine(doc)
	if !ok || string(first) != frontmatter.Delimiter {
		return block, nil
	}

	contentStart := len(doc) - len(rest)
	offset := contentStart

	for len(rest) > 0 {
		line, next, _ := cutLine(rest)

		if string(line) == frontmatter.Delimiter {
			end := offset + len(frontmatter.Delimiter)
			block.Pos = &frontmatter.Position{Start: 0, End: end}
			block.Body = string(trimLineBreak(doc[end:]))

			meta, err := decode(doc[contentStart:offset])
			if err != nil {
				return block, fmt.Errorf("%w: %w", ErrUnparseableMetadata, err)
			}

			block.Meta = meta

			return block, nil
		}

		offset += len(rest) - len(next)
		rest = next
	}

	return block, nil
}

// cutLine returns the first line of b without its line break, the remainder
// after the line break, and whether a line break was found.
func cutLine(b []byte) ([]byte, []byte, bool) {
	idx := bytes.IndexByte(b, '\n')
	if idx < 0 {
		return bytes.TrimSuffix(b, []byte("\r")), nil, false
	}

	return bytes.TrimSuffix(b[:idx], []byte("\r")), b[idx+1:], true
}

func trimLineBreak(b []byte) []byte {
	if bytes.HasPrefix(b, []byte("\r\n")) {
		return b[2:]
	}

	return bytes.TrimPrefix(b, []byte("\n"))
}

func decode(src []byte) (*frontmatter.Map, error) {
	meta := frontmatter.NewMap()

	if len(bytes.TrimSpace(src)) == 0 {
		return meta, nil
	}

	var doc yaml.Node

	err := yaml.Unmarshal(src, &doc)
	if err != nil {
		return nil, err
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return meta, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: block is not a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], resolveAlias(root.Content[i+1])

		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: key must be a scalar", keyNode.Line)
		}

		value, err := decodeValue(valueNode)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keyNode.Value, err)
		}

		meta.Set(keyNode.Value, value)
	}

	return meta, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}

	return n
}

func decodeValue(n *yaml.Node) (frontmatter.Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return decodeScalar(n)
	case yaml.SequenceNode:
		items := make([]string, 0, len(n.Content))

		for _, item := range n.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.ScalarNode {
				return frontmatter.Value{}, fmt.Errorf("line %d: list items must be scalars", item.Line)
			}

			items = append(items, item.Value)
		}

		return frontmatter.ListValue(items), nil
	case yaml.MappingNode:
		return frontmatter.Value{}, fmt.Errorf("line %d: nested mappings are not supported", n.Line)
	case yaml.DocumentNode, yaml.AliasNode:
	}

	return frontmatter.Value{}, fmt.Errorf("line %d: unsupported value", n.Line)
}

func decodeScalar(n *yaml.Node) (frontmatter.Value, error) {
	switch n.Tag {
	case "!!null":
		return frontmatter.NullValue(), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Out of int64 range: keep the text.
			return frontmatter.StringValue(n.Value), nil //nolint:nilerr
		}

		return frontmatter.IntValue(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return frontmatter.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}

		return frontmatter.FloatValue(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return frontmatter.Value{}, fmt.Errorf("line %d: %w", n.Line, err)
		}

		return frontmatter.BoolValue(b), nil
	}

	return frontmatter.StringValue(n.Value), nil
}
