package compile

import (
	"github.com/sean-lynch/cozo/internal/algebra"
)

// normalize is the post-compile cleanup pass: it instructs the tree to
// drop every synthetic binding from its visible schema. A bare fixed or
// triple root has no elimination point of its own, so if synthetics are
// still visible afterwards the tree is wrapped in one trivial join
// against unit and the pass reruns. The returned relation's schema
// contains only user-visible names.
func (b *builder) normalize() algebra.Relation {
	ret := b.ret
	ret.EliminateTempVars(algebra.NewKeywordSet())
	if algebra.HasSyntheticBindings(ret) {
		ret = &algebra.InnerJoin{
			Left:   ret,
			Right:  algebra.Unit(),
			Joiner: algebra.Joiner{},
		}
		ret.EliminateTempVars(algebra.NewKeywordSet())
	}
	return ret
}
