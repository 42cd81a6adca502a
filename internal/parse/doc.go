// Package parse turns raw JSON query clauses into typed Clause values.
//
// A clause arrives as a 3-element array [entity, attribute, value]. The
// attribute position must name a catalog attribute; the entity and value
// positions independently resolve to either a free variable or a concrete
// constant. Constants may require catalog work: unique-index lookups map a
// value to its owning entity, and scalars coerce through the attribute's
// declared type.
//
// All parse errors are detected eagerly per clause and abort the whole
// compile; there is no partial parsing. Errors carry a stable code and the
// offending clause's raw JSON for diagnostics.
package parse
