package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean-lynch/cozo/internal/data"
)

func sortInput() *Rows {
	return &Rows{
		Header: []data.Keyword{"?name", "?age", "?id"},
		Tuples: []Tuple{
			{data.String("bob"), data.Int(25), data.EntID(2)},
			{data.String("alice"), data.Int(30), data.EntID(1)},
			{data.String("carol"), data.Int(30), data.EntID(3)},
			{data.String("dave"), data.Int(25), data.EntID(4)},
		},
	}
}

func TestSortAndCollect_SingleAscendingKey(t *testing.T) {
	out, err := SortAndCollect(sortInput(),
		[]SortSpec{{Col: "?name", Dir: Asc}},
		[]data.Keyword{"?name"})
	require.NoError(t, err)

	assert.Equal(t, []data.Keyword{"?name"}, out.Header)
	assert.Equal(t, []Tuple{
		{data.String("alice")},
		{data.String("bob")},
		{data.String("carol")},
		{data.String("dave")},
	}, out.Tuples)
}

func TestSortAndCollect_DescendingThenAscending(t *testing.T) {
	// Age descending, name ascending within equal ages.
	out, err := SortAndCollect(sortInput(),
		[]SortSpec{{Col: "?age", Dir: Dsc}, {Col: "?name", Dir: Asc}},
		[]data.Keyword{"?name", "?age"})
	require.NoError(t, err)

	assert.Equal(t, []Tuple{
		{data.String("alice"), data.Int(30)},
		{data.String("carol"), data.Int(30)},
		{data.String("bob"), data.Int(25)},
		{data.String("dave"), data.Int(25)},
	}, out.Tuples)
}

func TestSortAndCollect_TiesKeepScanOrder(t *testing.T) {
	// All four rows tie on age 1, so the input order must survive.
	in := &Rows{
		Header: []data.Keyword{"?id", "?v"},
		Tuples: []Tuple{
			{data.EntID(9), data.Int(1)},
			{data.EntID(4), data.Int(1)},
			{data.EntID(7), data.Int(1)},
		},
	}
	out, err := SortAndCollect(in,
		[]SortSpec{{Col: "?v", Dir: Asc}},
		[]data.Keyword{"?id"})
	require.NoError(t, err)

	assert.Equal(t, []Tuple{
		{data.EntID(9)}, {data.EntID(4)}, {data.EntID(7)},
	}, out.Tuples)
}

func TestSortAndCollect_Idempotent(t *testing.T) {
	sorters := []SortSpec{{Col: "?age", Dir: Dsc}, {Col: "?name", Dir: Asc}}
	head := []data.Keyword{"?name", "?age"}

	once, err := SortAndCollect(sortInput(), sorters, head)
	require.NoError(t, err)
	twice, err := SortAndCollect(once, sorters, head)
	require.NoError(t, err)

	assert.Equal(t, once.Tuples, twice.Tuples)
}

func TestSortAndCollect_ProjectionReorders(t *testing.T) {
	out, err := SortAndCollect(sortInput(),
		[]SortSpec{{Col: "?id", Dir: Asc}},
		[]data.Keyword{"?age", "?name"})
	require.NoError(t, err)

	assert.Equal(t, []data.Keyword{"?age", "?name"}, out.Header)
	assert.Equal(t, Tuple{data.Int(30), data.String("alice")}, out.Tuples[0])
}

func TestSortAndCollect_UnknownColumns(t *testing.T) {
	_, err := SortAndCollect(sortInput(),
		[]SortSpec{{Col: "?missing", Dir: Asc}},
		[]data.Keyword{"?name"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "?missing")

	_, err = SortAndCollect(sortInput(), nil, []data.Keyword{"?missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "?missing")
}

func TestSortAndCollect_EmptyInput(t *testing.T) {
	in := &Rows{Header: []data.Keyword{"?x"}}
	out, err := SortAndCollect(in, []SortSpec{{Col: "?x", Dir: Asc}}, []data.Keyword{"?x"})
	require.NoError(t, err)
	assert.Empty(t, out.Tuples)
}
