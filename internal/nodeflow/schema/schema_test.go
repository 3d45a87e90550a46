package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableSchemaPrependsIndex(t *testing.T) {
	ts, err := NewTableSchema([]Column{
		{Name: "a", Type: ColInt},
		{Name: "b", Type: ColStr},
	})
	require.NoError(t, err)

	names := ts.ColNames()
	require.Equal(t, []string{IndexCol, "a", "b"}, names)

	ct, ok := ts.TypeOf(IndexCol)
	require.True(t, ok)
	assert.Equal(t, ColInt, ct)
}

func TestNewTableSchemaRejectsBadNames(t *testing.T) {
	cases := []struct {
		name string
		cols []Column
	}{
		{"underscore prefix", []Column{{Name: "_hidden", Type: ColInt}}},
		{"blank", []Column{{Name: "  ", Type: ColInt}}},
		{"empty", []Column{{Name: "", Type: ColInt}}},
		{"duplicate", []Column{{Name: "a", Type: ColInt}, {Name: "a", Type: ColStr}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTableSchema(tc.cols)
			assert.Error(t, err)
		})
	}
}

func TestAppendColCopies(t *testing.T) {
	ts := MustTableSchema(Column{Name: "a", Type: ColInt})

	out, err := ts.AppendCol("b", ColFloat)
	require.NoError(t, err)
	assert.True(t, out.Has("b"))
	assert.False(t, ts.Has("b"), "append must not mutate the receiver")

	_, err = ts.AppendCol("a", ColFloat)
	assert.Error(t, err, "collision")
	_, err = ts.AppendCol("_x", ColFloat)
	assert.Error(t, err, "reserved prefix")
}

func TestTableSchemaEqualIsOrderSensitive(t *testing.T) {
	ab := MustTableSchema(Column{Name: "a", Type: ColInt}, Column{Name: "b", Type: ColStr})
	ab2 := MustTableSchema(Column{Name: "a", Type: ColInt}, Column{Name: "b", Type: ColStr})
	ba := MustTableSchema(Column{Name: "b", Type: ColStr}, Column{Name: "a", Type: ColInt})

	assert.True(t, ab.Equal(ab2))
	assert.False(t, ab.Equal(ba))
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	in := OfTable(MustTableSchema(
		Column{Name: "a", Type: ColInt},
		Column{Name: "when", Type: ColDatetime},
	))

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out Schema
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, in.Equal(&out))
}

func TestSchemaValidate(t *testing.T) {
	assert.NoError(t, Scalar(TagInt).Validate())
	assert.Error(t, (&Schema{Tag: "whatever"}).Validate())
	assert.Error(t, (&Schema{Tag: TagTable}).Validate())
	assert.Error(t, OfModel(&ModelSchema{Category: "guesswork"}).Validate())
}

func TestPatternContains(t *testing.T) {
	table := OfTable(MustTableSchema(
		Column{Name: "x", Type: ColFloat},
		Column{Name: "flag", Type: ColBool},
	))

	assert.True(t, Accept(TagTable).Contains(table))
	assert.False(t, AcceptNumeric().Contains(table))
	assert.True(t, AcceptNumeric().Contains(Scalar(TagInt)))
	assert.True(t, AcceptAnyScalar().Contains(Scalar(TagDatetime)))
	assert.False(t, AcceptAnyScalar().Contains(table))

	assert.True(t, AcceptTable(map[string][]ColType{"x": {ColInt, ColFloat}}).Contains(table))
	assert.False(t, AcceptTable(map[string][]ColType{"x": {ColInt}}).Contains(table))
	assert.False(t, AcceptTable(map[string][]ColType{"missing": nil}).Contains(table))
	// Empty allowed list constrains presence only.
	assert.True(t, AcceptTable(map[string][]ColType{"flag": nil}).Contains(table))

	csv := OfFile(&FileSchema{Format: "csv"})
	assert.True(t, Pattern{Tags: []PrimitiveTag{TagFile}, Formats: []string{"csv"}}.Contains(csv))
	assert.False(t, Pattern{Tags: []PrimitiveTag{TagFile}, Formats: []string{"png"}}.Contains(csv))

	assert.False(t, Accept(TagInt).Contains(nil))
}

func TestColTypeTagBijection(t *testing.T) {
	for _, ct := range []ColType{ColInt, ColFloat, ColStr, ColBool, ColDatetime} {
		tag := ct.ToPrimitiveTag()
		require.True(t, tag.Scalar(), "tag %q", tag)
		back, err := tag.ToColType()
		require.NoError(t, err)
		assert.Equal(t, ct, back)
	}
	_, err := TagTable.ToColType()
	assert.Error(t, err)
}

func TestDefaultColName(t *testing.T) {
	assert.Equal(t, "node1_result", DefaultColName("node1", "result"))
}

func TestCheckColNames(t *testing.T) {
	assert.NoError(t, CheckColNames([]string{"a", "b"}, false))
	assert.Error(t, CheckColNames([]string{"a", "a"}, false))
	assert.Error(t, CheckColNames([]string{"_index"}, false))
	assert.NoError(t, CheckColNames([]string{"_index", "a"}, true))
}
