package algebra

import (
	"github.com/sean-lynch/cozo/internal/data"
)

// Relation is the sealed operator-tree node type.
//
// BindingSet returns the externally visible schema of the node: every
// named column it produces, in order, minus any bindings already marked
// for elimination. A well-formed compiled plan exposes each user variable
// exactly once at the root.
//
// EliminateTempVars marks synthetic bindings for removal from the visible
// schema. The used set carries the bindings that ancestor nodes still
// reference (their join keys): a synthetic binding is dropped at the
// highest node where nothing above needs it, which is also where its
// equality role has already been enforced.
type Relation interface {
	relationNode() // Marker method - seals interface to this package

	BindingSet() []data.Keyword
	EliminateTempVars(used KeywordSet)
}

// KeywordSet is a set of binding names.
type KeywordSet map[data.Keyword]struct{}

// NewKeywordSet builds a set from keywords.
func NewKeywordSet(kws ...data.Keyword) KeywordSet {
	s := make(KeywordSet, len(kws))
	for _, kw := range kws {
		s[kw] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s KeywordSet) Has(kw data.Keyword) bool {
	_, ok := s[kw]
	return ok
}

// Add inserts a keyword.
func (s KeywordSet) Add(kw data.Keyword) {
	s[kw] = struct{}{}
}

// Union returns a fresh set containing both operands' members.
func (s KeywordSet) Union(other KeywordSet) KeywordSet {
	out := make(KeywordSet, len(s)+len(other))
	for kw := range s {
		out[kw] = struct{}{}
	}
	for kw := range other {
		out[kw] = struct{}{}
	}
	return out
}

// UnitRelation is the identity of the join-tree fold: exactly one row and
// no columns. Compilation starts from it, and the normalizer joins against
// it when a bare leaf node needs an elimination point.
type UnitRelation struct{}

func (UnitRelation) relationNode() {}

// Unit returns the unit relation.
func Unit() Relation {
	return UnitRelation{}
}

// IsUnit reports whether r is the unit relation.
func IsUnit(r Relation) bool {
	switch r.(type) {
	case UnitRelation, *UnitRelation:
		return true
	}
	return false
}

func (UnitRelation) BindingSet() []data.Keyword {
	return nil
}

func (UnitRelation) EliminateTempVars(KeywordSet) {}

// InlineFixedRelation is an explicit list of rows with named bindings.
// The compiler uses single-row instances to fold query constants into the
// join tree: the constant is bound to a synthetic keyword and joined
// against the scan that must match it.
type InlineFixedRelation struct {
	// Bindings names the columns, in row order.
	Bindings []data.Keyword

	// Data holds the rows. Every row has len(Bindings) values.
	Data [][]data.DataValue
}

func (*InlineFixedRelation) relationNode() {}

func (r *InlineFixedRelation) BindingSet() []data.Keyword {
	return r.Bindings
}

// EliminateTempVars is a no-op: a fixed row block projects nothing away on
// its own. Synthetic bindings it exposes are eliminated by the join above
// it, or by the normalizer's trailing unit join when it ends up as the
// plan root.
func (*InlineFixedRelation) EliminateTempVars(KeywordSet) {}

// TripleRelation is an indexed scan of all facts for one attribute at one
// validity snapshot. It exposes exactly two bindings: the entity slot then
// the value slot.
//
// Every TripleRelation built within one compile call carries the same
// Vld, which is what gives the whole plan a single point-in-time view.
type TripleRelation struct {
	Attr data.Attribute
	Vld  data.Validity

	// Bindings is [entity-slot, value-slot].
	Bindings [2]data.Keyword
}

func (*TripleRelation) relationNode() {}

func (r *TripleRelation) BindingSet() []data.Keyword {
	return []data.Keyword{r.Bindings[0], r.Bindings[1]}
}

// EliminateTempVars is a no-op for the same reason as InlineFixedRelation.
func (*TripleRelation) EliminateTempVars(KeywordSet) {}

// Joiner is the equality predicate of an inner join: position i of
// LeftKeys must equal position i of RightKeys. Empty key lists make the
// join a plain cross product.
type Joiner struct {
	LeftKeys  []data.Keyword
	RightKeys []data.Keyword
}

// InnerJoin combines two relations on the Joiner's positional equalities.
// ToEliminate lists bindings dropped from the output schema once the join
// has consumed them.
type InnerJoin struct {
	Left   Relation
	Right  Relation
	Joiner Joiner

	// ToEliminate is populated by EliminateTempVars; it starts empty.
	ToEliminate KeywordSet
}

func (*InnerJoin) relationNode() {}

func (r *InnerJoin) BindingSet() []data.Keyword {
	var out []data.Keyword
	for _, kw := range r.Left.BindingSet() {
		if r.ToEliminate.Has(kw) {
			continue
		}
		out = append(out, kw)
	}
	for _, kw := range r.Right.BindingSet() {
		if r.ToEliminate.Has(kw) {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// EliminateTempVars marks every synthetic binding this join produces and
// no ancestor still needs, then recurses with the child-facing used set
// extended by this join's own keys.
func (r *InnerJoin) EliminateTempVars(used KeywordSet) {
	if r.ToEliminate == nil {
		r.ToEliminate = make(KeywordSet)
	}
	childUsed := used.Union(NewKeywordSet(r.Joiner.LeftKeys...))
	for _, kw := range r.Joiner.RightKeys {
		childUsed.Add(kw)
	}

	var produced []data.Keyword
	produced = append(produced, r.Left.BindingSet()...)
	produced = append(produced, r.Right.BindingSet()...)
	for _, kw := range produced {
		if kw.IsSynthetic() && !used.Has(kw) {
			r.ToEliminate.Add(kw)
		}
	}

	r.Left.EliminateTempVars(childUsed)
	r.Right.EliminateTempVars(childUsed)
}

// HasSyntheticBindings reports whether the visible schema of r still
// contains synthetic names. After normalization this must be false.
func HasSyntheticBindings(r Relation) bool {
	for _, kw := range r.BindingSet() {
		if kw.IsSynthetic() {
			return true
		}
	}
	return false
}
