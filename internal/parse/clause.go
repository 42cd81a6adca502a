package parse

import (
	"context"

	"github.com/sean-lynch/cozo/internal/data"
)

// Clause is the polymorphic clause type of a query.
//
// This is a sealed interface - only types in this package implement it.
// AttrTripleClause is the only variant today; the union stays open so
// future clause kinds (rule invocation, negation, aggregation) can be
// added without disturbing the compiler's clause loop.
type Clause interface {
	clauseNode() // Marker method - seals interface to this package
}

// AttrTripleClause is one triple pattern: an attribute with an entity
// position and a value position, each either a variable or a constant.
type AttrTripleClause struct {
	Attr   data.Attribute
	Entity MaybeVariable[data.EntityID]
	Value  MaybeVariable[data.DataValue]
}

func (AttrTripleClause) clauseNode() {}

// MaybeVariable is a sum over {free variable, concrete constant} for one
// clause position.
type MaybeVariable[T any] struct {
	variable data.Keyword
	constant T
	isVar    bool
}

// Variable builds the variable case.
func Variable[T any](kw data.Keyword) MaybeVariable[T] {
	return MaybeVariable[T]{variable: kw, isVar: true}
}

// Constant builds the constant case.
func Constant[T any](v T) MaybeVariable[T] {
	return MaybeVariable[T]{constant: v}
}

// Var returns the variable keyword, if this is the variable case.
func (m MaybeVariable[T]) Var() (data.Keyword, bool) {
	return m.variable, m.isVar
}

// Const returns the constant, if this is the constant case.
func (m MaybeVariable[T]) Const() (T, bool) {
	return m.constant, !m.isVar
}

// Catalog is the attribute-catalog collaborator consumed during parsing.
// The storage layer implements it; parsing performs only reads.
type Catalog interface {
	// AttrByName resolves an attribute definition by name. A missing
	// attribute returns (nil, nil), not an error: the caller decides
	// whether absence is fatal.
	AttrByName(ctx context.Context, name data.Keyword) (*data.Attribute, error)

	// EntityByUnique looks up the entity owning the given value under a
	// unique-indexed attribute, at the given validity. The boolean
	// reports whether a matching entity exists.
	EntityByUnique(ctx context.Context, attr *data.Attribute, value data.DataValue, vld data.Validity) (data.EntityID, bool, error)
}
