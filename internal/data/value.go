package data

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// DataValue is a sealed interface over the value kinds a triple can store.
// Only Bool, Int, String, EntID, and Reversed implement it.
//
// There is deliberately no float variant: floats break deterministic
// comparison and stable key encoding, and the coercion layer rejects them.
//
// Reversed is not an independent value kind. It wraps another value purely
// to invert its ordering inside a sort key and never appears in stored
// triples or query constants.
type DataValue interface {
	dataValue() // Marker method - seals interface to this package
}

// Bool is a boolean value. false orders before true.
type Bool bool

func (Bool) dataValue() {}

// Int is a 64-bit signed integer value.
type Int int64

func (Int) dataValue() {}

// String is a text value. Comparison and key encoding see the
// NFC-normalized form.
type String string

func (String) dataValue() {}

// EntID is an entity reference value, produced by ref-typed attributes
// and by unique-index lookups.
type EntID EntityID

func (EntID) dataValue() {}

// Reversed inverts the ordering of the wrapped value. It exists only so
// that a descending sort key can be expressed as a plain value inside an
// otherwise ascending lexicographic key tuple.
type Reversed struct {
	Inner DataValue
}

func (Reversed) dataValue() {}

// valueKind is the ordering tag of a DataValue. Values of different kinds
// order by tag, giving a total order across the whole union.
type valueKind int

const (
	kindBool valueKind = iota
	kindInt
	kindString
	kindEntID
)

func kindOf(v DataValue) valueKind {
	switch v.(type) {
	case Bool:
		return kindBool
	case Int:
		return kindInt
	case String:
		return kindString
	case EntID:
		return kindEntID
	default:
		panic(fmt.Sprintf("value kind of %T", v))
	}
}

// Compare imposes a total order on data values: first by kind tag, then by
// payload. A Reversed value compares as the inverse of its wrapped value;
// comparing a Reversed against a bare value is a programming error, since
// a sort key position is either always wrapped or never wrapped.
func Compare(a, b DataValue) int {
	ra, aRev := a.(Reversed)
	rb, bRev := b.(Reversed)
	switch {
	case aRev && bRev:
		return -Compare(ra.Inner, rb.Inner)
	case aRev || bRev:
		panic("comparing reversed value against plain value")
	}

	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		return cmpInt(int64(ka), int64(kb))
	}
	switch va := a.(type) {
	case Bool:
		return cmpBool(bool(va), bool(b.(Bool)))
	case Int:
		return cmpInt(int64(va), int64(b.(Int)))
	case String:
		return bytes.Compare(
			[]byte(norm.NFC.String(string(va))),
			[]byte(norm.NFC.String(string(b.(String)))),
		)
	case EntID:
		return cmpUint(uint64(va), uint64(b.(EntID)))
	default:
		panic(fmt.Sprintf("compare %T", a))
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// MarshalValue renders a DataValue as JSON. Entity references serialize as
// bare numbers, which is how the wire format spells them.
func MarshalValue(v DataValue) ([]byte, error) {
	switch val := v.(type) {
	case Bool:
		return json.Marshal(bool(val))
	case Int:
		return json.Marshal(int64(val))
	case String:
		return json.Marshal(string(val))
	case EntID:
		return json.Marshal(uint64(val))
	case Reversed:
		return nil, fmt.Errorf("reversed values are sort-internal and cannot be marshaled")
	default:
		return nil, fmt.Errorf("unknown DataValue type: %T", v)
	}
}

// RenderValue is the human-readable spelling used in plan renderings and
// CLI text output.
func RenderValue(v DataValue) string {
	switch val := v.(type) {
	case Bool:
		return fmt.Sprintf("%t", bool(val))
	case Int:
		return fmt.Sprintf("%d", int64(val))
	case String:
		return fmt.Sprintf("%q", string(val))
	case EntID:
		return fmt.Sprintf("#%d", uint64(val))
	case Reversed:
		return "rev(" + RenderValue(val.Inner) + ")"
	default:
		return fmt.Sprintf("!%T", v)
	}
}
