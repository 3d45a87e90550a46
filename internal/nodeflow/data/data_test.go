package data

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow/nodeflow/internal/nodeflow/schema"
)

func citiesSchema(t *testing.T) *schema.TableSchema {
	t.Helper()
	return schema.MustTableSchema(
		schema.Column{Name: "city", Type: schema.ColStr},
		schema.Column{Name: "pop", Type: schema.ColInt},
		schema.Column{Name: "rain", Type: schema.ColFloat},
	)
}

func citiesTable(t *testing.T) *Table {
	t.Helper()
	tab, err := NewTable(citiesSchema(t), map[string][]any{
		"city": []any{"Oslo", "Lima", "Pune"},
		"pop":  []any{int64(700), nil, int64(3100)},
		"rain": []any{76.3, 1.1, 72.2},
	})
	require.NoError(t, err)
	return tab
}

func TestNewTableChecksShape(t *testing.T) {
	ts := citiesSchema(t)

	_, err := NewTable(ts, map[string][]any{
		"city": []any{"Oslo"},
		"pop":  []any{int64(700), int64(800)},
		"rain": []any{76.3},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cells, want")

	_, err = NewTable(ts, map[string][]any{
		"city": []any{"Oslo"},
		"pop":  []any{"not a number"},
		"rain": []any{76.3},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not int64")

	_, err = NewTable(ts, map[string][]any{
		"city": []any{"Oslo"},
		"rain": []any{76.3},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared but not provided")
}

func TestTableIndexIsGenerated(t *testing.T) {
	tab := citiesTable(t)

	idx, ok := tab.Col(schema.IndexCol)
	require.True(t, ok)
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, idx)
}

func TestSelectRowsRegeneratesIndex(t *testing.T) {
	tab := citiesTable(t)

	out, err := tab.SelectRows([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())

	city, _ := out.Col("city")
	assert.Equal(t, []any{"Pune", "Oslo"}, city)
	idx, _ := out.Col(schema.IndexCol)
	assert.Equal(t, []any{int64(0), int64(1)}, idx)

	_, err = tab.SelectRows([]int{5})
	assert.Error(t, err)
}

func TestAppendColRejectsCollision(t *testing.T) {
	tab := citiesTable(t)

	_, err := tab.AppendCol("pop", schema.ColInt, []any{int64(1), int64(2), int64(3)})
	assert.Error(t, err)

	out, err := tab.AppendCol("area", schema.ColFloat, []any{10.0, nil, 30.0})
	require.NoError(t, err)
	assert.True(t, out.ExtractSchema().Has("area"))
	assert.False(t, tab.ExtractSchema().Has("area"), "append must not mutate the receiver")
}

func TestConcatRequiresEqualSchemas(t *testing.T) {
	a := citiesTable(t)
	b := citiesTable(t)

	out, err := Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, 6, out.NumRows())
	idx, _ := out.Col(schema.IndexCol)
	assert.Equal(t, []any{int64(0), int64(1), int64(2), int64(3), int64(4), int64(5)}, idx)

	other := MustTable(schema.MustTableSchema(schema.Column{Name: "x", Type: schema.ColInt}),
		map[string][]any{"x": []any{int64(1)}})
	_, err = Concat(a, other)
	assert.Error(t, err)
}

func TestRowAndSlice(t *testing.T) {
	tab := citiesTable(t)

	row, err := tab.Row(1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.NumRows())
	cell, err := row.Cell(0, "pop")
	require.NoError(t, err)
	assert.Nil(t, cell, "null cells survive slicing")

	win, err := tab.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, win.NumRows())

	_, err = tab.Slice(2, 5)
	assert.Error(t, err)
}

func TestViewRoundTripsSpecials(t *testing.T) {
	ts := schema.MustTableSchema(
		schema.Column{Name: "v", Type: schema.ColFloat},
		schema.Column{Name: "at", Type: schema.ColDatetime},
	)
	when := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)
	tab, err := NewTable(ts, map[string][]any{
		"v":  []any{math.Inf(1), math.Inf(-1), nil, 1.5},
		"at": []any{when, when, nil, when},
	})
	require.NoError(t, err)

	view, err := OfTable(tab).View()
	require.NoError(t, err)
	assert.Equal(t, "Infinity", view.Cells["v"][0])
	assert.Equal(t, "-Infinity", view.Cells["v"][1])
	assert.Equal(t, NullSentinel, view.Cells["v"][2])

	back, err := FromView(view)
	require.NoError(t, err)
	assert.True(t, back.Equal(OfTable(tab)))
}

func TestNaNRoundTrip(t *testing.T) {
	view, err := Float(math.NaN()).View()
	require.NoError(t, err)
	assert.Equal(t, "NaN", view.Value)

	back, err := FromView(view)
	require.NoError(t, err)
	f, err := back.Float()
	require.NoError(t, err)
	assert.True(t, math.IsNaN(f))
}

func TestFastHashIgnoresColumnMapOrder(t *testing.T) {
	a := citiesTable(t)
	b := citiesTable(t)

	ha, err := a.FastHash()
	require.NoError(t, err)
	hb, err := b.FastHash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	c, err := a.AppendCol("area", schema.ColFloat, []any{1.0, 2.0, 3.0})
	require.NoError(t, err)
	hc, err := c.FastHash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestExtractSchemaDispatch(t *testing.T) {
	assert.Equal(t, schema.TagInt, Int(1).ExtractSchema().Tag)
	assert.Equal(t, schema.TagTable, OfTable(citiesTable(t)).ExtractSchema().Tag)

	f := OfFile(&File{Format: "csv", Bytes: []byte("a,b\n")})
	s := f.ExtractSchema()
	require.Equal(t, schema.TagFile, s.Tag)
	assert.Equal(t, "csv", s.File.Format)
}

func TestFileEqualComparesTableSide(t *testing.T) {
	raw := []byte("city,pop\nOslo,700\n")
	withTable := OfFile(&File{Format: "csv", Bytes: raw, Table: citiesSchema(t)})
	withoutTable := OfFile(&File{Format: "csv", Bytes: raw})

	assert.True(t, withTable.Equal(OfFile(&File{Format: "csv", Bytes: raw, Table: citiesSchema(t)})))
	assert.True(t, withoutTable.Equal(OfFile(&File{Format: "csv", Bytes: raw})))

	// Same bytes, different table annotation: not the same value.
	assert.False(t, withTable.Equal(withoutTable))
	other := schema.MustTableSchema(schema.Column{Name: "pop", Type: schema.ColInt})
	assert.False(t, withTable.Equal(OfFile(&File{Format: "csv", Bytes: raw, Table: other})))
}

func TestScalarAccessorsEnforceTag(t *testing.T) {
	_, err := Int(1).Float()
	assert.Error(t, err)

	n, err := Int(3).Number()
	require.NoError(t, err)
	assert.Equal(t, 3.0, n)

	_, err = Str("x").Number()
	assert.Error(t, err)

	v, err := FromScalar(int64(9), schema.ColInt)
	require.NoError(t, err)
	assert.Equal(t, schema.TagInt, v.Tag())

	_, err = FromScalar(nil, schema.ColInt)
	assert.Error(t, err)
}
