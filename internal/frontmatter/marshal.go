package frontmatter

import (
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter is the marker line that opens and closes a block.
const Delimiter = "---"

// Merge returns current with patch applied. Keys keep current's order,
// followed by keys new in patch, in patch order. Null patch values are kept
// in the result and dropped by [Serialize].
//
// Neither argument is modified.
func Merge(current, patch *Map) *Map {
	merged := current.Clone()

	if patch == nil {
		return merged
	}

	for _, key := range patch.keys {
		v := patch.values[key]
		if v.Kind == ValueList {
			v.List = append([]string{}, v.List...)
		}

		merged.Set(key, v)
	}

	return merged
}

// Serialize renders m as canonical block text: opening marker, one line per
// non-null key, closing marker. The result has no trailing newline.
//
// Rules:
//   - null values are omitted;
//   - empty lists render as [];
//   - empty strings render as "" except for [KindDate] fields, which are
//     omitted so date inputs show an unset state;
//   - strings with line breaks render as a literal block;
//   - single-line strings are double-quoted when they contain ':' or '#',
//     start with '-', carry surrounding whitespace, or would read back as a
//     non-string;
//   - lists render inline, items single-quoted when they carry structural
//     characters; lists with multi-line items render as a block sequence.
func Serialize(m *Map, schema Schema) string {
	var builder strings.Builder

	builder.WriteString(Delimiter)
	builder.WriteByte('\n')

	for _, key := range m.Keys() {
		v, _ := m.Get(key)

		switch v.Kind {
		case ValueNull:
			continue
		case ValueList:
			writeList(&builder, key, v.List)
		case ValueScalar:
			if v.Scalar.Kind == ScalarString && v.Scalar.String == "" && schema.KindOf(key) == KindDate {
				continue
			}

			writeScalar(&builder, key, v.Scalar)
		}
	}

	builder.WriteString(Delimiter)

	return builder.String()
}

func writeKey(builder *strings.Builder, key string) {
	if needsScalarQuote(key) {
		builder.WriteString(strconv.Quote(key))
	} else {
		builder.WriteString(key)
	}

	builder.WriteByte(':')
}

func writeScalar(builder *strings.Builder, key string, s Scalar) {
	writeKey(builder, key)

	switch s.Kind {
	case ScalarString:
		if isMultiline(s.String) && strings.TrimSpace(s.String) != "" {
			writeLiteral(builder, s.String)

			return
		}

		builder.WriteByte(' ')
		builder.WriteString(formatString(s.String))
	case ScalarInt:
		builder.WriteByte(' ')
		builder.WriteString(strconv.FormatInt(s.Int, 10))
	case ScalarFloat:
		builder.WriteByte(' ')
		builder.WriteString(formatFloat(s.Float))
	case ScalarBool:
		builder.WriteByte(' ')
		builder.WriteString(strconv.FormatBool(s.Bool))
	}

	builder.WriteByte('\n')
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatString(s string) string {
	if s == "" || needsScalarQuote(s) {
		return strconv.Quote(s)
	}

	return s
}

// writeLiteral renders s as a literal block scalar. The chomping indicator
// encodes the number of trailing newlines so the text reads back unchanged.
func writeLiteral(builder *strings.Builder, s string) {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	body := strings.TrimRight(s, "\n")
	trailing := len(s) - len(body)

	builder.WriteString(" |")

	// An explicit indentation indicator is needed when the first content
	// line is itself indented, otherwise the reader infers a deeper indent.
	lines := strings.Split(body, "\n")
	indicator := false

	for _, line := range lines {
		if line == "" {
			continue
		}

		if strings.TrimSpace(line) == "" || line[0] == ' ' || line[0] == '\t' {
			indicator = true
		}

		break
	}

	if indicator {
		builder.WriteByte('2')
	}

	switch {
	case trailing == 0:
		builder.WriteByte('-')
	case trailing > 1:
		builder.WriteByte('+')
	}

	builder.WriteByte('\n')

	for _, line := range lines {
		if line != "" {
			builder.WriteString("  ")
			builder.WriteString(line)
		}

		builder.WriteByte('\n')
	}

	for range trailing - 1 {
		builder.WriteByte('\n')
	}
}

func writeList(builder *strings.Builder, key string, items []string) {
	writeKey(builder, key)

	if len(items) == 0 {
		builder.WriteString(" []\n")

		return
	}

	multiline := false

	for _, item := range items {
		if isMultiline(item) {
			multiline = true

			break
		}
	}

	if multiline {
		builder.WriteByte('\n')

		for _, item := range items {
			builder.WriteString("  - ")
			builder.WriteString(strconv.Quote(item))
			builder.WriteByte('\n')
		}

		return
	}

	builder.WriteString(" [")

	for i, item := range items {
		if i > 0 {
			builder.WriteString(", ")
		}

		builder.WriteString(formatFlowItem(item))
	}

	builder.WriteString("]\n")
}

func formatFlowItem(s string) string {
	if !needsFlowQuote(s) {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isMultiline(s string) bool {
	return strings.ContainsAny(s, "\n\r")
}

func needsScalarQuote(s string) bool {
	if strings.TrimSpace(s) != s {
		return true
	}

	if strings.ContainsAny(s, ":#") || strings.HasPrefix(s, "-") {
		return true
	}

	tag, ok := plainScalarTag(s)
	if !ok {
		return true
	}

	return tag != "!!str" && tag != "!!timestamp"
}

func needsFlowQuote(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return true
	}

	if strings.ContainsAny(s, "'\",[]{}:#\n\r") || strings.HasPrefix(s, "-") {
		return true
	}

	_, ok := plainScalarTag(s)

	return !ok
}

// plainScalarTag reports how a YAML reader resolves s written as a plain
// scalar. ok is false when s does not read back as the same plain scalar.
func plainScalarTag(s string) (string, bool) {
	var doc yaml.Node

	err := yaml.Unmarshal([]byte(s), &doc)
	if err != nil {
		return "", false
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return "", false
	}

	node := doc.Content[0]
	if node.Kind != yaml.ScalarNode || node.Style != 0 || node.Value != s {
		return "", false
	}

	return node.Tag, true
}
