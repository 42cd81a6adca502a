package data

import (
	"math"
	"strconv"
	"time"
)

// EntityID is the opaque 64-bit identifier of an entity. IDs are assigned
// once and never reused.
//
// The zero value is a sentinel: unique-index lookups that find no matching
// entity report EntityID(0) rather than failing, so a query against a
// missing entity compiles to a plan that simply matches nothing.
type EntityID uint64

// IsZero reports whether the ID is the not-found sentinel.
func (id EntityID) IsZero() bool {
	return id == 0
}

// String renders the ID as a decimal literal, matching the wire form
// accepted in the entity position of a query clause.
func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Validity is the bitemporal timestamp at which a read is evaluated,
// in microseconds since the Unix epoch.
//
// Every triple scan inside one compiled plan carries the same Validity,
// which is what gives a multi-join query a single consistent point-in-time
// view: concurrent writers land at later validities and are invisible to
// the running plan without any locking.
type Validity int64

// MaxValidity reads the latest state: every assertion ever written is
// at or before it.
const MaxValidity Validity = math.MaxInt64

// NewValidity derives a Validity from a wall-clock instant.
func NewValidity(t time.Time) Validity {
	return Validity(t.UnixMicro())
}

// Time converts the validity back to a wall-clock instant.
func (v Validity) Time() time.Time {
	return time.UnixMicro(int64(v))
}
