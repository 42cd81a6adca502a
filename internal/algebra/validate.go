package algebra

import (
	"fmt"

	"github.com/sean-lynch/cozo/internal/data"
)

// ValidationResult contains well-formedness analysis of a compiled plan.
//
// A plan handed to execution must be executable; warnings indicate a
// compiler defect, not a user error, so Validate is primarily a test and
// debugging aid.
type ValidationResult struct {
	// IsExecutable indicates the plan passed every structural check.
	IsExecutable bool

	// Warnings lists the violations found. Empty when IsExecutable.
	Warnings []string
}

// Validate checks the structural invariants of a compiled plan:
//
//  1. No synthetic binding is visible in the root schema.
//  2. No binding name appears twice in any node's visible schema.
//  3. Every join's key lists have equal length.
//  4. Every join key is visible in the schema of the corresponding child.
//  5. Every fixed row has exactly one value per binding.
//  6. Every triple scan carries the same validity as the rest of the plan.
//
// Validate is a pure function with no side effects.
func Validate(plan Relation) ValidationResult {
	v := &validator{warnings: []string{}}

	for _, kw := range plan.BindingSet() {
		if kw.IsSynthetic() {
			v.addWarning("synthetic binding %s leaks into the root schema", kw)
		}
	}
	v.validateNode(plan)

	return ValidationResult{
		IsExecutable: len(v.warnings) == 0,
		Warnings:     v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
	vld      *data.Validity
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateNode(r Relation) {
	if r == nil {
		v.addWarning("nil relation node")
		return
	}

	v.checkDuplicates(r)

	switch rel := r.(type) {
	case UnitRelation, *UnitRelation:
		// No structure to check.

	case *InlineFixedRelation:
		for i, row := range rel.Data {
			if len(row) != len(rel.Bindings) {
				v.addWarning("fixed row %d has %d values for %d bindings",
					i, len(row), len(rel.Bindings))
			}
		}

	case *TripleRelation:
		if v.vld == nil {
			vld := rel.Vld
			v.vld = &vld
		} else if *v.vld != rel.Vld {
			v.addWarning("triple scan of %s reads validity %d, plan reads %d",
				rel.Attr.Keyword, rel.Vld, *v.vld)
		}

	case *InnerJoin:
		if len(rel.Joiner.LeftKeys) != len(rel.Joiner.RightKeys) {
			v.addWarning("join key lists differ in length: %d left, %d right",
				len(rel.Joiner.LeftKeys), len(rel.Joiner.RightKeys))
		}
		v.checkKeysVisible(rel.Joiner.LeftKeys, rel.Left, "left")
		v.checkKeysVisible(rel.Joiner.RightKeys, rel.Right, "right")
		v.validateNode(rel.Left)
		v.validateNode(rel.Right)

	default:
		v.addWarning("unknown relation type: %T", r)
	}
}

// checkDuplicates flags binding names appearing twice in one schema.
func (v *validator) checkDuplicates(r Relation) {
	seen := make(map[data.Keyword]struct{})
	for _, kw := range r.BindingSet() {
		if _, dup := seen[kw]; dup {
			v.addWarning("binding %s appears twice in one schema", kw)
		}
		seen[kw] = struct{}{}
	}
}

// checkKeysVisible flags join keys missing from a child's visible schema.
func (v *validator) checkKeysVisible(keys []data.Keyword, child Relation, side string) {
	visible := NewKeywordSet(child.BindingSet()...)
	for _, kw := range keys {
		if !visible.Has(kw) {
			v.addWarning("%s join key %s is not visible in the %s child schema", side, kw, side)
		}
	}
}
