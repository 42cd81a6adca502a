// Package compile builds one relational operator tree from an ordered
// list of parsed query clauses.
//
// The compiler folds clauses strictly left to right into a running
// relation, starting from the unit relation. Constants are injected as
// single-row inline relations bound to fresh synthetic keywords; repeated
// variable occurrences become join equalities against the variable's
// defining occurrence rather than duplicate columns. Every triple scan in
// the emitted plan carries the validity supplied to the compile call, so
// the whole plan reads one consistent snapshot.
//
// Compilation is a pure, single-threaded pass: it either returns a plan
// whose root schema contains exactly the user-visible variables of the
// query, each once, or fails atomically with a clause error.
//
// A clause binding the same variable in both its entity and value
// positions is rejected with ErrCodeSelfReferential rather than compiled
// into a degenerate join.
package compile
