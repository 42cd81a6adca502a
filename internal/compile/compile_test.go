package compile

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean-lynch/cozo/internal/algebra"
	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/parse"
)

// fakeCatalog mirrors the parser tests' catalog fixture.
type fakeCatalog struct {
	attrs  map[data.Keyword]data.Attribute
	unique map[string]data.EntityID
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		attrs: map[data.Keyword]data.Attribute{
			"person/name":   {Keyword: "person/name", ValType: data.TypeString, Indexing: data.IndexUnique},
			"person/age":    {Keyword: "person/age", ValType: data.TypeInt, Indexing: data.IndexNone},
			"person/friend": {Keyword: "person/friend", ValType: data.TypeRef, Indexing: data.IndexNone},
		},
		unique: map[string]data.EntityID{
			`person/name"alice"`: 7,
		},
	}
}

func (c *fakeCatalog) AttrByName(_ context.Context, name data.Keyword) (*data.Attribute, error) {
	attr, ok := c.attrs[name]
	if !ok {
		return nil, nil
	}
	return &attr, nil
}

func (c *fakeCatalog) EntityByUnique(_ context.Context, attr *data.Attribute, value data.DataValue, _ data.Validity) (data.EntityID, bool, error) {
	eid, ok := c.unique[string(attr.Keyword)+data.RenderValue(value)]
	return eid, ok, nil
}

func compilePayload(t *testing.T, payload string) algebra.Relation {
	t.Helper()
	c := NewCompiler(newFakeCatalog())
	rel, err := c.Compile(context.Background(), json.RawMessage(payload), data.Validity(42))
	require.NoError(t, err)
	return rel
}

func bindingStrings(rel algebra.Relation) []string {
	var out []string
	for _, kw := range rel.BindingSet() {
		out = append(out, string(kw))
	}
	return out
}

func TestCompile_SchemaNeverContainsSynthetics(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		columns []string
	}{
		{
			name:    "const entity, var value",
			payload: `[[7, "person/name", "?name"]]`,
			columns: []string{"?name"},
		},
		{
			name:    "var entity, const value",
			payload: `[["?p", "person/name", "alice"]]`,
			columns: []string{"?p"},
		},
		{
			name:    "var entity, var value",
			payload: `[["?p", "person/name", "?name"]]`,
			columns: []string{"?p", "?name"},
		},
		{
			name:    "const entity, const value",
			payload: `[[7, "person/name", "alice"]]`,
			columns: nil,
		},
		{
			name: "friend chain shares variables",
			payload: `[
				["?x", "person/friend", "?y"],
				["?y", "person/friend", "?z"]
			]`,
			columns: []string{"?x", "?y", "?z"},
		},
		{
			name: "constants mixed into a chain",
			payload: `[
				[7, "person/friend", "?y"],
				["?y", "person/name", "?name"],
				["?y", "person/age", 30]
			]`,
			columns: []string{"?y", "?name"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rel := compilePayload(t, tc.payload)

			assert.False(t, algebra.HasSyntheticBindings(rel))
			assert.Equal(t, tc.columns, bindingStrings(rel))

			res := algebra.Validate(rel)
			assert.True(t, res.IsExecutable, "warnings: %v", res.Warnings)
		})
	}
}

func TestCompile_SharedVariableBecomesJoinNotDuplicateColumn(t *testing.T) {
	rel := compilePayload(t, `[
		["?x", "person/friend", "?y"],
		["?y", "person/friend", "?z"]
	]`)

	// ?y appears once in the schema even though two clauses bind it.
	counts := make(map[string]int)
	for _, kw := range rel.BindingSet() {
		counts[string(kw)]++
	}
	assert.Equal(t, 1, counts["?y"])

	// The second occurrence became a join equality against ?y's defining
	// occurrence.
	join, ok := rel.(*algebra.InnerJoin)
	require.True(t, ok)
	require.Len(t, join.Joiner.LeftKeys, 1)
	assert.Equal(t, data.Keyword("?y"), join.Joiner.LeftKeys[0])
	assert.True(t, join.Joiner.RightKeys[0].IsSynthetic())
}

func TestCompile_SingleVarVarClauseIsBareScan(t *testing.T) {
	rel := compilePayload(t, `[["?p", "person/name", "?name"]]`)

	tr, ok := rel.(*algebra.TripleRelation)
	require.True(t, ok, "a lone two-variable clause compiles to the scan itself, got %T", rel)
	assert.Equal(t, [2]data.Keyword{"?p", "?name"}, tr.Bindings)
	assert.Equal(t, data.Validity(42), tr.Vld)
}

func TestCompile_SelfReferentialClauseRejected(t *testing.T) {
	c := NewCompiler(newFakeCatalog())
	_, err := c.Compile(context.Background(),
		json.RawMessage(`[["?x", "person/friend", "?x"]]`), data.Validity(42))

	require.Error(t, err)
	assert.True(t, parse.IsSelfReferential(err))
}

func TestCompile_SharedValidityAcrossAllScans(t *testing.T) {
	rel := compilePayload(t, `[
		["?x", "person/friend", "?y"],
		["?y", "person/name", "?name"],
		[7, "person/age", 30]
	]`)

	var vlds []data.Validity
	var walk func(r algebra.Relation)
	walk = func(r algebra.Relation) {
		switch node := r.(type) {
		case *algebra.TripleRelation:
			vlds = append(vlds, node.Vld)
		case *algebra.InnerJoin:
			walk(node.Left)
			walk(node.Right)
		}
	}
	walk(rel)

	require.Len(t, vlds, 3)
	for _, vld := range vlds {
		assert.Equal(t, data.Validity(42), vld)
	}
}

func TestCompile_EmptyClauseListIsUnit(t *testing.T) {
	rel := compilePayload(t, `[]`)
	assert.True(t, algebra.IsUnit(rel))
	assert.Empty(t, rel.BindingSet())
}

func TestCompile_ParseErrorAbortsAtomically(t *testing.T) {
	c := NewCompiler(newFakeCatalog())
	_, err := c.Compile(context.Background(), json.RawMessage(`[
		["?x", "person/friend", "?y"],
		["?y", "no/such", "?z"]
	]`), data.Validity(42))

	require.Error(t, err)
	assert.True(t, parse.IsAttrNotFound(err))
}

func TestNormalize_WrapsBareRootWithLeakedSynthetics(t *testing.T) {
	// Not reachable through clause compilation today; the normalizer
	// still guarantees a clean schema for any builder state.
	b := &builder{
		ret: &algebra.InlineFixedRelation{
			Bindings: []data.Keyword{"*0"},
			Data:     [][]data.DataValue{{data.Int(1)}},
		},
		seen: make(algebra.KeywordSet),
	}

	rel := b.normalize()
	assert.False(t, algebra.HasSyntheticBindings(rel))

	_, ok := rel.(*algebra.InnerJoin)
	assert.True(t, ok, "bare root gains a trivial unit join as elimination point")
}
