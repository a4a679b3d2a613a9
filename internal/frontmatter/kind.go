package frontmatter

import (
	"strconv"
	"strings"
)

// Kind is the declared type of a field. Each kind has one coercion rule and
// one default; callers consult the [Schema] instead of guessing per use.
type Kind uint8

// Kind values.
const (
	KindText Kind = iota
	KindNumber
	KindDate
	KindStatus
	KindTagSet
	KindPersonSet
	KindFreeText
	KindBool
)

var kindNames = [...]string{
	KindText:      "text",
	KindNumber:    "number",
	KindDate:      "date",
	KindStatus:    "status",
	KindTagSet:    "tags",
	KindPersonSet: "people",
	KindFreeText:  "freetext",
	KindBool:      "bool",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsSet reports whether values of this kind are lists.
func (k Kind) IsSet() bool {
	return k == KindTagSet || k == KindPersonSet
}

// Default returns the value a field of this kind has when absent.
// Dates default to null so date inputs show a true "unset" state.
func (k Kind) Default() Value {
	switch k {
	case KindNumber:
		return IntValue(0)
	case KindDate:
		return NullValue()
	case KindTagSet, KindPersonSet:
		return ListValue(nil)
	case KindBool:
		return BoolValue(false)
	case KindText, KindStatus, KindFreeText:
		return StringValue("")
	}

	return StringValue("")
}

// Coerce converts v into the canonical shape for the kind. The second return
// is false when v cannot be represented; the default is returned then.
//
// Null stays null for every kind.
func (k Kind) Coerce(v Value) (Value, bool) {
	if v.IsNull() {
		return v, true
	}

	switch k {
	case KindNumber:
		if v.Kind != ValueScalar {
			return k.Default(), false
		}

		switch v.Scalar.Kind {
		case ScalarInt, ScalarFloat:
			return v, true
		case ScalarString:
			return k.Parse(v.Scalar.String)
		case ScalarBool:
		}

		return k.Default(), false
	case KindBool:
		if v.Kind != ValueScalar {
			return k.Default(), false
		}

		if v.Scalar.Kind == ScalarBool {
			return v, true
		}

		return k.Parse(v.Scalar.Text())
	case KindTagSet, KindPersonSet:
		if v.Kind == ValueList {
			return v, true
		}

		return k.Parse(v.Scalar.Text())
	case KindText, KindStatus, KindFreeText, KindDate:
		if v.Kind != ValueScalar {
			return k.Default(), false
		}

		return StringValue(v.Scalar.Text()), true
	}

	return v, true
}

// Parse converts user input (for example a CLI argument) into a value of
// this kind. Sets are comma separated. Empty input for a date is the empty
// string, which [Serialize] omits.
func (k Kind) Parse(raw string) (Value, bool) {
	switch k {
	case KindNumber:
		trimmed := strings.TrimSpace(raw)

		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return IntValue(n), true
		}

		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return FloatValue(f), true
		}

		return k.Default(), false
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return k.Default(), false
		}

		return BoolValue(b), true
	case KindTagSet, KindPersonSet:
		items := []string{}

		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				items = append(items, part)
			}
		}

		return ListValue(items), true
	case KindDate:
		return StringValue(strings.TrimSpace(raw)), true
	case KindText, KindStatus, KindFreeText:
		return StringValue(raw), true
	}

	return StringValue(raw), true
}

// Well-known field names.
const (
	FieldStatus       = "status"
	FieldPriority     = "priority"
	FieldOrder        = "order"
	FieldCreatedAt    = "createdAt"
	FieldStartDate    = "startDate"
	FieldEndDate      = "endDate"
	FieldPlannedStart = "plannedStart"
	FieldPlannedEnd   = "plannedEnd"
	FieldTags         = "tags"
	FieldAssignees    = "assignees"
	FieldArchived     = "archived"
	FieldNumber       = "number"
	FieldDescription  = "description"
)

// Schema maps field names to kinds. Unknown fields are [KindText].
type Schema map[string]Kind

// DefaultSchema declares the built-in task fields.
func DefaultSchema() Schema {
	return Schema{
		FieldStatus:       KindStatus,
		FieldPriority:     KindText,
		FieldOrder:        KindNumber,
		FieldCreatedAt:    KindText,
		FieldStartDate:    KindDate,
		FieldEndDate:      KindDate,
		FieldPlannedStart: KindDate,
		FieldPlannedEnd:   KindDate,
		FieldTags:         KindTagSet,
		FieldAssignees:    KindPersonSet,
		FieldArchived:     KindBool,
		FieldNumber:       KindText,
		FieldDescription:  KindFreeText,
	}
}

// KindOf returns the kind of key.
func (s Schema) KindOf(key string) Kind {
	if k, ok := s[key]; ok {
		return k
	}

	return KindText
}

// With returns a copy of s with key declared as kind.
func (s Schema) With(key string, kind Kind) Schema {
	out := make(Schema, len(s)+1)
	for k, v := range s {
		out[k] = v
	}

	out[key] = kind

	return out
}
