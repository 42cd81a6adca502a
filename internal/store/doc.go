// Package store is the SQLite-backed physical layer: the attribute
// catalog and the bitemporal fact log.
//
// Facts are entity-attribute-value triples stamped with a validity (the
// bitemporal read timestamp) and an assert/retract op. A fact is live at
// validity V when its latest op at or before V is an assert. Readers pass
// a validity and see a consistent snapshot; writers append at later
// validities without disturbing running reads.
//
// The store implements the two collaborator interfaces the query layers
// consume: the parse.Catalog attribute/unique lookups and the
// engine.TripleSource attribute scan.
package store
