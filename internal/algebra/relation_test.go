package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sean-lynch/cozo/internal/data"
)

func attrOf(name string) data.Attribute {
	return data.Attribute{
		Keyword:  data.Keyword(name),
		ValType:  data.TypeString,
		Indexing: data.IndexNone,
	}
}

func TestUnitRelation(t *testing.T) {
	u := Unit()
	assert.True(t, IsUnit(u))
	assert.Empty(t, u.BindingSet())
}

func TestTripleRelation_BindingSet(t *testing.T) {
	tr := &TripleRelation{
		Attr:     attrOf("person/name"),
		Vld:      data.MaxValidity,
		Bindings: [2]data.Keyword{"?p", "?name"},
	}
	assert.Equal(t, []data.Keyword{"?p", "?name"}, tr.BindingSet())
	assert.False(t, IsUnit(tr))
}

func TestInnerJoin_BindingSetSkipsEliminated(t *testing.T) {
	join := &InnerJoin{
		Left: &InlineFixedRelation{
			Bindings: []data.Keyword{"*0"},
			Data:     [][]data.DataValue{{data.EntID(7)}},
		},
		Right: &TripleRelation{
			Attr:     attrOf("person/name"),
			Vld:      data.MaxValidity,
			Bindings: [2]data.Keyword{"*1", "?name"},
		},
		Joiner: Joiner{
			LeftKeys:  []data.Keyword{"*0"},
			RightKeys: []data.Keyword{"*1"},
		},
		ToEliminate: NewKeywordSet("*0", "*1"),
	}

	assert.Equal(t, []data.Keyword{"?name"}, join.BindingSet())
}

func TestEliminateTempVars_DropsUnusedSynthetics(t *testing.T) {
	// Plan shape for [7 :person/name ?name]: Fixed(*0) joined with
	// Triple(*1 ?name) on *0=*1.
	join := &InnerJoin{
		Left: &InlineFixedRelation{
			Bindings: []data.Keyword{"*0"},
			Data:     [][]data.DataValue{{data.EntID(7)}},
		},
		Right: &TripleRelation{
			Attr:     attrOf("person/name"),
			Vld:      data.MaxValidity,
			Bindings: [2]data.Keyword{"*1", "?name"},
		},
		Joiner: Joiner{
			LeftKeys:  []data.Keyword{"*0"},
			RightKeys: []data.Keyword{"*1"},
		},
	}

	assert.True(t, HasSyntheticBindings(join))

	join.EliminateTempVars(NewKeywordSet())

	assert.False(t, HasSyntheticBindings(join))
	assert.Equal(t, []data.Keyword{"?name"}, join.BindingSet())
	assert.True(t, join.ToEliminate.Has("*0"))
	assert.True(t, join.ToEliminate.Has("*1"))
}

func TestEliminateTempVars_KeepsBindingsUsedAbove(t *testing.T) {
	// An outer join still needs *0 from the inner cross product: the
	// inner node must keep it visible so the outer join key resolves.
	inner := &InnerJoin{
		Left: UnitRelation{},
		Right: &InlineFixedRelation{
			Bindings: []data.Keyword{"*0"},
			Data:     [][]data.DataValue{{data.EntID(7)}},
		},
		Joiner: Joiner{},
	}
	outer := &InnerJoin{
		Left: inner,
		Right: &TripleRelation{
			Attr:     attrOf("person/name"),
			Vld:      data.MaxValidity,
			Bindings: [2]data.Keyword{"*1", "?name"},
		},
		Joiner: Joiner{
			LeftKeys:  []data.Keyword{"*0"},
			RightKeys: []data.Keyword{"*1"},
		},
	}

	outer.EliminateTempVars(NewKeywordSet())

	// Inner node keeps *0 visible for the outer join's key.
	assert.Contains(t, inner.BindingSet(), data.Keyword("*0"))
	// Outer node drops both synthetics from the final schema.
	assert.Equal(t, []data.Keyword{"?name"}, outer.BindingSet())
}

func TestBareFixedKeepsSyntheticsWithoutJoin(t *testing.T) {
	// A bare fixed relation has no elimination point: its synthetic
	// bindings survive EliminateTempVars. The normalizer handles this by
	// wrapping the plan in a trivial unit join.
	fixed := &InlineFixedRelation{
		Bindings: []data.Keyword{"*0", "*1"},
		Data:     [][]data.DataValue{{data.EntID(1), data.String("x")}},
	}

	fixed.EliminateTempVars(NewKeywordSet())
	assert.True(t, HasSyntheticBindings(fixed))

	wrapped := &InnerJoin{Left: fixed, Right: Unit(), Joiner: Joiner{}}
	wrapped.EliminateTempVars(NewKeywordSet())
	assert.False(t, HasSyntheticBindings(wrapped))
	assert.Empty(t, wrapped.BindingSet())
}

func TestValidate_WellFormedPlan(t *testing.T) {
	join := &InnerJoin{
		Left: &InlineFixedRelation{
			Bindings: []data.Keyword{"*0"},
			Data:     [][]data.DataValue{{data.EntID(7)}},
		},
		Right: &TripleRelation{
			Attr:     attrOf("person/name"),
			Vld:      data.MaxValidity,
			Bindings: [2]data.Keyword{"*1", "?name"},
		},
		Joiner: Joiner{
			LeftKeys:  []data.Keyword{"*0"},
			RightKeys: []data.Keyword{"*1"},
		},
	}
	join.EliminateTempVars(NewKeywordSet())

	res := Validate(join)
	assert.True(t, res.IsExecutable, "warnings: %v", res.Warnings)
	assert.Empty(t, res.Warnings)
}

func TestValidate_Violations(t *testing.T) {
	testCases := []struct {
		name string
		plan Relation
	}{
		{
			name: "leaked synthetic at root",
			plan: &InlineFixedRelation{
				Bindings: []data.Keyword{"*0"},
				Data:     [][]data.DataValue{{data.Int(1)}},
			},
		},
		{
			name: "mismatched joiner key lists",
			plan: &InnerJoin{
				Left:  Unit(),
				Right: Unit(),
				Joiner: Joiner{
					LeftKeys:  []data.Keyword{"?x"},
					RightKeys: nil,
				},
			},
		},
		{
			name: "join key missing from child schema",
			plan: &InnerJoin{
				Left: Unit(),
				Right: &TripleRelation{
					Attr:     attrOf("person/name"),
					Vld:      data.MaxValidity,
					Bindings: [2]data.Keyword{"?p", "?name"},
				},
				Joiner: Joiner{
					LeftKeys:  []data.Keyword{"?missing"},
					RightKeys: []data.Keyword{"?p"},
				},
			},
		},
		{
			name: "ragged fixed row",
			plan: &InnerJoin{
				Left: &InlineFixedRelation{
					Bindings: []data.Keyword{"?a", "?b"},
					Data:     [][]data.DataValue{{data.Int(1)}},
				},
				Right:  Unit(),
				Joiner: Joiner{},
			},
		},
		{
			name: "mixed validities",
			plan: &InnerJoin{
				Left: &TripleRelation{
					Attr:     attrOf("person/name"),
					Vld:      data.Validity(1),
					Bindings: [2]data.Keyword{"?p", "?name"},
				},
				Right: &TripleRelation{
					Attr:     attrOf("person/age"),
					Vld:      data.Validity(2),
					Bindings: [2]data.Keyword{"?q", "?age"},
				},
				Joiner: Joiner{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(tc.plan)
			assert.False(t, res.IsExecutable)
			assert.NotEmpty(t, res.Warnings)
		})
	}
}

func TestRender_Deterministic(t *testing.T) {
	join := &InnerJoin{
		Left: &InlineFixedRelation{
			Bindings: []data.Keyword{"*0"},
			Data:     [][]data.DataValue{{data.EntID(7)}},
		},
		Right: &TripleRelation{
			Attr:     attrOf("person/name"),
			Vld:      data.Validity(100),
			Bindings: [2]data.Keyword{"*1", "?name"},
		},
		Joiner: Joiner{
			LeftKeys:  []data.Keyword{"*0"},
			RightKeys: []data.Keyword{"*1"},
		},
		ToEliminate: NewKeywordSet("*1", "*0"),
	}

	want := "" +
		"join [*0=*1] drop [*0 *1]\n" +
		"  fixed [*0]\n" +
		"    row [#7]\n" +
		"  triple person/name [*1 ?name] @100\n"

	first := Render(join)
	require.Equal(t, want, first)
	// Set-typed fields are sorted, so repeated renderings are identical.
	assert.Equal(t, first, Render(join))
}
