package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean-lynch/cozo/internal/algebra"
	"github.com/sean-lynch/cozo/internal/compile"
	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/store"
)

// fakeDB backs both the parse catalog and the triple source, so tests
// can run parse → compile → eval without a real store.
type fakeDB struct {
	attrs map[data.Keyword]data.Attribute
	facts map[data.Keyword][]store.ScanRow
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		attrs: map[data.Keyword]data.Attribute{
			"person/name":   {Keyword: "person/name", ValType: data.TypeString, Indexing: data.IndexUnique},
			"person/age":    {Keyword: "person/age", ValType: data.TypeInt, Indexing: data.IndexNone},
			"person/friend": {Keyword: "person/friend", ValType: data.TypeRef, Indexing: data.IndexNone},
		},
		facts: map[data.Keyword][]store.ScanRow{
			"person/name": {
				{Entity: 1, Value: data.String("alice")},
				{Entity: 2, Value: data.String("bob")},
				{Entity: 3, Value: data.String("carol")},
			},
			"person/age": {
				{Entity: 1, Value: data.Int(30)},
				{Entity: 2, Value: data.Int(25)},
				{Entity: 3, Value: data.Int(30)},
			},
			"person/friend": {
				{Entity: 1, Value: data.EntID(2)},
				{Entity: 1, Value: data.EntID(3)},
				{Entity: 2, Value: data.EntID(3)},
			},
		},
	}
}

func (db *fakeDB) AttrByName(_ context.Context, name data.Keyword) (*data.Attribute, error) {
	attr, ok := db.attrs[name]
	if !ok {
		return nil, nil
	}
	return &attr, nil
}

func (db *fakeDB) EntityByUnique(_ context.Context, attr *data.Attribute, value data.DataValue, _ data.Validity) (data.EntityID, bool, error) {
	for _, row := range db.facts[attr.Keyword] {
		if data.Compare(row.Value, value) == 0 {
			return row.Entity, true, nil
		}
	}
	return 0, false, nil
}

func (db *fakeDB) ScanAttribute(_ context.Context, attr data.Attribute, _ data.Validity) ([]store.ScanRow, error) {
	return db.facts[attr.Keyword], nil
}

// runQuery is the full pipeline: parse, compile, evaluate.
func runQuery(t *testing.T, db *fakeDB, payload string) *Rows {
	t.Helper()
	ctx := context.Background()

	rel, err := compile.NewCompiler(db).Compile(ctx, json.RawMessage(payload), data.MaxValidity)
	require.NoError(t, err)

	rows, err := NewExecutor(db).Eval(ctx, rel)
	require.NoError(t, err)
	assert.Equal(t, rel.BindingSet(), rows.Header)
	return rows
}

func TestEval_Unit(t *testing.T) {
	rows, err := NewExecutor(newFakeDB()).Eval(context.Background(), algebra.Unit())
	require.NoError(t, err)
	assert.Empty(t, rows.Header)
	require.Len(t, rows.Tuples, 1)
	assert.Empty(t, rows.Tuples[0])
}

func TestEval_Fixed(t *testing.T) {
	fixed := &algebra.InlineFixedRelation{
		Bindings: []data.Keyword{"?a"},
		Data:     [][]data.DataValue{{data.Int(1)}, {data.Int(2)}},
	}
	rows, err := NewExecutor(newFakeDB()).Eval(context.Background(), fixed)
	require.NoError(t, err)
	assert.Equal(t, []data.Keyword{"?a"}, rows.Header)
	assert.Len(t, rows.Tuples, 2)
}

func TestEval_TripleScan(t *testing.T) {
	db := newFakeDB()
	tr := &algebra.TripleRelation{
		Attr:     db.attrs["person/name"],
		Vld:      data.MaxValidity,
		Bindings: [2]data.Keyword{"?p", "?name"},
	}
	rows, err := NewExecutor(db).Eval(context.Background(), tr)
	require.NoError(t, err)

	assert.Equal(t, []data.Keyword{"?p", "?name"}, rows.Header)
	require.Len(t, rows.Tuples, 3)
	assert.Equal(t, Tuple{data.EntID(1), data.String("alice")}, rows.Tuples[0])
}

func TestQuery_ConstConstIsExistenceCheck(t *testing.T) {
	db := newFakeDB()

	// Fact exists: exactly one row, no columns.
	rows := runQuery(t, db, `[[1, "person/name", "alice"]]`)
	assert.Empty(t, rows.Header)
	assert.Len(t, rows.Tuples, 1)

	// Fact does not exist: zero rows.
	rows = runQuery(t, db, `[[1, "person/name", "bob"]]`)
	assert.Empty(t, rows.Tuples)
}

func TestQuery_SharedVariableIsNaturalJoin(t *testing.T) {
	db := newFakeDB()

	// friend(?x, ?y) ⋈ friend(?y, ?z): the only two-hop chains are
	// 1→2→3 and 1→3→(nothing), 2→3→(nothing), so one row survives.
	rows := runQuery(t, db, `[
		["?x", "person/friend", "?y"],
		["?y", "person/friend", "?z"]
	]`)

	assert.Equal(t, []data.Keyword{"?x", "?y", "?z"}, rows.Header)
	require.Len(t, rows.Tuples, 1)
	assert.Equal(t, Tuple{data.EntID(1), data.EntID(2), data.EntID(3)}, rows.Tuples[0])
}

func TestQuery_ConstEntityBindsScan(t *testing.T) {
	db := newFakeDB()

	rows := runQuery(t, db, `[[1, "person/friend", "?y"]]`)
	assert.Equal(t, []data.Keyword{"?y"}, rows.Header)
	require.Len(t, rows.Tuples, 2)
	assert.ElementsMatch(t,
		[]Tuple{{data.EntID(2)}, {data.EntID(3)}},
		rows.Tuples)
}

func TestQuery_UniqueLookupEntityPosition(t *testing.T) {
	db := newFakeDB()

	// {"person/name": "alice"} resolves to entity 1 during parsing.
	rows := runQuery(t, db, `[[{"person/name": "alice"}, "person/age", "?age"]]`)
	assert.Equal(t, []data.Keyword{"?age"}, rows.Header)
	require.Len(t, rows.Tuples, 1)
	assert.Equal(t, Tuple{data.Int(30)}, rows.Tuples[0])
}

func TestQuery_UniqueLookupMissMatchesNothing(t *testing.T) {
	db := newFakeDB()

	// The miss compiles to the zero sentinel, which no stored fact has.
	rows := runQuery(t, db, `[[{"person/name": "nobody"}, "person/age", "?age"]]`)
	assert.Empty(t, rows.Tuples)
}

func TestQuery_CrossProductWhenNoSharedVariables(t *testing.T) {
	db := newFakeDB()

	rows := runQuery(t, db, `[
		["?p", "person/age", "?age"],
		["?q", "person/friend", "?r"]
	]`)

	assert.Equal(t, []data.Keyword{"?p", "?age", "?q", "?r"}, rows.Header)
	assert.Len(t, rows.Tuples, 9) // 3 ages × 3 friend edges
}

func TestQuery_ValueConstantFilters(t *testing.T) {
	db := newFakeDB()

	rows := runQuery(t, db, `[["?p", "person/age", 30]]`)
	assert.Equal(t, []data.Keyword{"?p"}, rows.Header)
	assert.ElementsMatch(t,
		[]Tuple{{data.EntID(1)}, {data.EntID(3)}},
		rows.Tuples)
}

func TestEvalJoin_MissingKeyColumnFails(t *testing.T) {
	join := &algebra.InnerJoin{
		Left:  algebra.Unit(),
		Right: algebra.Unit(),
		Joiner: algebra.Joiner{
			LeftKeys:  []data.Keyword{"?x"},
			RightKeys: []data.Keyword{"?y"},
		},
	}
	_, err := NewExecutor(newFakeDB()).Eval(context.Background(), join)
	require.Error(t, err)
}
