package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Kind_Coerce_Converts_Raw_Values_To_Canonical_Shape(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		kind   Kind
		in     Value
		want   Value
		wantOK bool
	}{
		{name: "NumberFromString", kind: KindNumber, in: StringValue("4"), want: IntValue(4), wantOK: true},
		{name: "NumberFromGarbage", kind: KindNumber, in: StringValue("four"), want: IntValue(0), wantOK: false},
		{name: "NumberFromList", kind: KindNumber, in: ListValue([]string{"1"}), want: IntValue(0), wantOK: false},
		{name: "TagsFromScalar", kind: KindTagSet, in: StringValue("a, b"), want: ListValue([]string{"a", "b"}), wantOK: true},
		{name: "TagsFromEmptyScalar", kind: KindTagSet, in: StringValue(""), want: ListValue(nil), wantOK: true},
		{name: "TextFromInt", kind: KindText, in: IntValue(12), want: StringValue("12"), wantOK: true},
		{name: "BoolFromString", kind: KindBool, in: StringValue("true"), want: BoolValue(true), wantOK: true},
		{name: "DateKeepsNull", kind: KindDate, in: NullValue(), want: NullValue(), wantOK: true},
		{name: "DateFromList", kind: KindDate, in: ListValue(nil), want: NullValue(), wantOK: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, ok := testCase.kind.Coerce(testCase.in)

			assert.Equal(t, testCase.wantOK, ok)
			assert.True(t, testCase.want.Equal(got), "got %+v, want %+v", got, testCase.want)
		})
	}
}

func Test_Schema_KindOf_Returns_Text_When_Key_Is_Unknown(t *testing.T) {
	t.Parallel()

	schema := DefaultSchema()

	require.Equal(t, KindDate, schema.KindOf(FieldEndDate))
	require.Equal(t, KindTagSet, schema.KindOf(FieldTags))
	require.Equal(t, KindText, schema.KindOf("customField"))

	extended := schema.With("dueDate", KindDate)

	require.Equal(t, KindDate, extended.KindOf("dueDate"))
	require.Equal(t, KindText, schema.KindOf("dueDate"), "With must not modify the receiver")
}

func Test_Map_Delete_Removes_Key_And_Order_Entry(t *testing.T) {
	t.Parallel()

	m := NewMap().Set("a", IntValue(1)).Set("b", IntValue(2)).Set("c", IntValue(3))
	m.Delete("b")
	m.Delete("missing")

	require.Equal(t, []string{"a", "c"}, m.Keys())

	n, ok := m.GetInt("c")
	require.True(t, ok)
	require.Equal(t, int64(3), n)

	var nilMap *Map

	require.Equal(t, 0, nilMap.Len())

	_, ok = nilMap.Get("a")
	require.False(t, ok)
}
