// Package algebra defines the relational operator tree that query
// compilation produces and execution consumes.
//
// Relation is a sealed interface - only types in this package implement
// it. The marker method pattern prevents external implementations and
// enables exhaustive type switches in executors and renderers.
//
// Relation types:
//   - UnitRelation: cardinality-one relation with no columns
//   - InlineFixedRelation: explicit small list of rows with named bindings
//   - TripleRelation: indexed scan of one attribute at one validity
//   - InnerJoin: binary inner equi-join with positional key lists
//
// A compiled tree may carry synthetic bindings (data.Keyword values in the
// reserved '*' namespace) that exist only to express join constraints.
// EliminateTempVars pushes them into join elimination sets so that
// BindingSet of the root exposes only user-visible names.
package algebra
