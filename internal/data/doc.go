// Package data defines the value and identity model shared by every layer
// of the triple store: entity identifiers, typed data values, interned
// keywords, attribute catalog entries, and bitemporal validity stamps.
//
// The package has no dependencies on storage or query compilation. All
// types are value types with no shared mutable state; callers may copy
// them freely.
//
// Determinism notes:
//   - DataValue is a sealed union with no float variant. Floats break
//     byte-stable comparison and are rejected at the coercion boundary.
//   - Strings are NFC-normalized before comparison and key encoding, so
//     two Unicode spellings of the same text compare equal everywhere.
package data
