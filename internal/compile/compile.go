package compile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sean-lynch/cozo/internal/algebra"
	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/parse"
)

// Compiler turns raw query payloads into executable relation trees.
// It owns no state beyond the catalog handle; every compile call gets a
// fresh variable table and keyword allocator.
type Compiler struct {
	parser *parse.Parser
}

// NewCompiler creates a Compiler over the given catalog.
func NewCompiler(catalog parse.Catalog) *Compiler {
	return &Compiler{parser: parse.NewParser(catalog)}
}

// Compile parses and compiles a whole query payload at one validity.
func (c *Compiler) Compile(ctx context.Context, payload json.RawMessage, vld data.Validity) (algebra.Relation, error) {
	clauses, err := c.parser.ParseClauses(ctx, payload, vld)
	if err != nil {
		return nil, err
	}
	return CompileClauses(clauses, vld)
}

// CompileClauses folds an ordered clause list into a single relation
// whose schema contains exactly the user-visible variables referenced by
// the clauses, each exactly once.
func CompileClauses(clauses []parse.Clause, vld data.Validity) (algebra.Relation, error) {
	b := &builder{
		ret:  algebra.Unit(),
		seen: make(algebra.KeywordSet),
		vld:  vld,
	}

	for _, clause := range clauses {
		switch cl := clause.(type) {
		case parse.AttrTripleClause:
			if err := b.addTriple(cl); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported clause type: %T", clause)
		}
	}

	return b.normalize(), nil
}

// builder is the per-compile state: the running relation, the set of user
// variables already bound, and the synthetic-name allocator.
type builder struct {
	ret   algebra.Relation
	seen  algebra.KeywordSet
	alloc data.KeywordAllocator
	vld   data.Validity
}

// addTriple dispatches one clause over the four (entity, value)
// constant/variable combinations.
func (b *builder) addTriple(cl parse.AttrTripleClause) error {
	eVar, eIsVar := cl.Entity.Var()
	vVar, vIsVar := cl.Value.Var()

	switch {
	case !eIsVar && vIsVar:
		eid, _ := cl.Entity.Const()
		b.constEntityVarValue(cl.Attr, eid, vVar)
	case eIsVar && !vIsVar:
		val, _ := cl.Value.Const()
		b.varEntityConstValue(cl.Attr, eVar, val)
	case eIsVar && vIsVar:
		return b.varEntityVarValue(cl.Attr, eVar, vVar)
	default:
		eid, _ := cl.Entity.Const()
		val, _ := cl.Value.Const()
		b.constEntityConstValue(cl.Attr, eid, val)
	}
	return nil
}

// constEntityVarValue handles [const-entity, attr, ?value]: the constant
// entity is injected as a one-row fixed relation under a fresh synthetic
// key, cross-joined into the running relation, and correlated with a
// triple scan whose entity slot carries a matching synthetic key.
func (b *builder) constEntityVarValue(attr data.Attribute, eid data.EntityID, vVar data.Keyword) {
	keyLeft := b.alloc.Next()
	keyRight := b.alloc.Next()

	b.crossWithFixed(&algebra.InlineFixedRelation{
		Bindings: []data.Keyword{keyLeft},
		Data:     [][]data.DataValue{{data.EntID(eid)}},
	})

	joinLeft := []data.Keyword{keyLeft}
	joinRight := []data.Keyword{keyRight}
	vBinding := b.resolveVar(vVar, &joinLeft, &joinRight)

	b.joinOnto(&algebra.TripleRelation{
		Attr:     attr,
		Vld:      b.vld,
		Bindings: [2]data.Keyword{keyRight, vBinding},
	}, joinLeft, joinRight)
}

// varEntityConstValue handles [?entity, attr, const-value]: symmetric to
// constEntityVarValue with the entity and value roles swapped.
func (b *builder) varEntityConstValue(attr data.Attribute, eVar data.Keyword, val data.DataValue) {
	keyLeft := b.alloc.Next()
	keyRight := b.alloc.Next()

	b.crossWithFixed(&algebra.InlineFixedRelation{
		Bindings: []data.Keyword{keyLeft},
		Data:     [][]data.DataValue{{val}},
	})

	joinLeft := []data.Keyword{keyLeft}
	joinRight := []data.Keyword{keyRight}
	eBinding := b.resolveVar(eVar, &joinLeft, &joinRight)

	b.joinOnto(&algebra.TripleRelation{
		Attr:     attr,
		Vld:      b.vld,
		Bindings: [2]data.Keyword{eBinding, keyRight},
	}, joinLeft, joinRight)
}

// varEntityVarValue handles [?entity, attr, ?value]: no constant
// injection. Each variable independently either defines its column or
// adds a join equality against its defining occurrence. A clause binding
// the same variable in both positions is rejected; see the package note
// on self-referential clauses.
func (b *builder) varEntityVarValue(attr data.Attribute, eVar, vVar data.Keyword) error {
	if eVar == vVar {
		return parse.NewClauseError(parse.ErrCodeSelfReferential, nil,
			"entity and value of one clause bind the same variable %s", eVar)
	}

	var joinLeft, joinRight []data.Keyword
	eBinding := b.resolveVar(eVar, &joinLeft, &joinRight)
	vBinding := b.resolveVar(vVar, &joinLeft, &joinRight)

	right := &algebra.TripleRelation{
		Attr:     attr,
		Vld:      b.vld,
		Bindings: [2]data.Keyword{eBinding, vBinding},
	}
	if algebra.IsUnit(b.ret) {
		b.ret = right
		return nil
	}
	b.joinOnto(right, joinLeft, joinRight)
	return nil
}

// constEntityConstValue handles [const-entity, attr, const-value]: both
// constants are injected together as one two-column fixed row, and a
// triple scan with two fresh synthetic bindings is joined on both keys,
// selecting exactly the rows matching both constants.
func (b *builder) constEntityConstValue(attr data.Attribute, eid data.EntityID, val data.DataValue) {
	leftE := b.alloc.Next()
	leftV := b.alloc.Next()

	b.crossWithFixed(&algebra.InlineFixedRelation{
		Bindings: []data.Keyword{leftE, leftV},
		Data:     [][]data.DataValue{{data.EntID(eid), val}},
	})

	rightE := b.alloc.Next()
	rightV := b.alloc.Next()

	b.joinOnto(&algebra.TripleRelation{
		Attr:     attr,
		Vld:      b.vld,
		Bindings: [2]data.Keyword{rightE, rightV},
	}, []data.Keyword{leftE, leftV}, []data.Keyword{rightE, rightV})
}

// resolveVar applies the first-occurrence-vs-repeat rule. The first
// occurrence of a user variable binds it directly and becomes its
// defining occurrence. A repeat gets a fresh synthetic binding plus a
// join equality (defining-binding = synthetic), so the join enforces
// equality without a duplicate output column.
func (b *builder) resolveVar(kw data.Keyword, joinLeft, joinRight *[]data.Keyword) data.Keyword {
	if b.seen.Has(kw) {
		fresh := b.alloc.Next()
		*joinLeft = append(*joinLeft, kw)
		*joinRight = append(*joinRight, fresh)
		return fresh
	}
	b.seen.Add(kw)
	return kw
}

// crossWithFixed cross-joins a constant-injection relation into the
// running relation, or replaces it while it is still unit.
func (b *builder) crossWithFixed(fixed *algebra.InlineFixedRelation) {
	if algebra.IsUnit(b.ret) {
		b.ret = fixed
		return
	}
	b.ret = &algebra.InnerJoin{
		Left:   b.ret,
		Right:  fixed,
		Joiner: algebra.Joiner{},
	}
}

// joinOnto joins a triple scan onto the running relation with the
// accumulated equality pairs (possibly none, making it a cross product).
func (b *builder) joinOnto(right algebra.Relation, leftKeys, rightKeys []data.Keyword) {
	b.ret = &algebra.InnerJoin{
		Left:  b.ret,
		Right: right,
		Joiner: algebra.Joiner{
			LeftKeys:  leftKeys,
			RightKeys: rightKeys,
		},
	}
}
