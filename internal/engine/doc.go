// Package engine evaluates compiled relation trees against a triple
// source and materializes ordered results.
//
// Evaluation is a single bottom-up pass over the operator tree: leaf
// nodes produce tuples, inner joins hash-join their children on the
// compiled key pairs and project away consumed bookkeeping columns.
// Every triple scan in one plan reads the same validity, so the result
// reflects one consistent snapshot regardless of concurrent writers.
//
// SortAndCollect is the downstream collation stage: it orders rows by a
// list of (column, direction) keys, breaking ties by original scan
// position, and projects to the requested output columns.
package engine
