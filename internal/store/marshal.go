package store

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"github.com/sean-lynch/cozo/internal/data"
)

// Value kind tags as stored in triples.value_kind. The numeric order
// matches the data package's cross-kind ordering so that SQL ORDER BY
// over (value_kind, value_int, value_str) agrees with data.Compare.
const (
	storedKindBool  = 1
	storedKindInt   = 2
	storedKindStr   = 3
	storedKindEntID = 4
)

// encodeValue splits a DataValue across the typed storage columns.
// Strings are NFC-normalized at the storage boundary, so two Unicode
// spellings of the same text occupy one index slot.
func encodeValue(v data.DataValue) (kind int, vint int64, vstr string, err error) {
	switch val := v.(type) {
	case data.Bool:
		if val {
			return storedKindBool, 1, "", nil
		}
		return storedKindBool, 0, "", nil
	case data.Int:
		return storedKindInt, int64(val), "", nil
	case data.String:
		return storedKindStr, 0, norm.NFC.String(string(val)), nil
	case data.EntID:
		return storedKindEntID, int64(val), "", nil
	case data.Reversed:
		return 0, 0, "", fmt.Errorf("reversed values are sort-internal and cannot be stored")
	default:
		return 0, 0, "", fmt.Errorf("unsupported value type for storage: %T", v)
	}
}

// decodeValue reassembles a DataValue from the storage columns.
func decodeValue(kind int, vint int64, vstr string) (data.DataValue, error) {
	switch kind {
	case storedKindBool:
		return data.Bool(vint != 0), nil
	case storedKindInt:
		return data.Int(vint), nil
	case storedKindStr:
		return data.String(vstr), nil
	case storedKindEntID:
		return data.EntID(vint), nil
	default:
		return nil, fmt.Errorf("unknown stored value kind %d", kind)
	}
}

// kindForType maps a declared attribute type to the stored kind tag of
// its values, used to reject writes that do not match the declaration.
func kindForType(t data.AttrValueType) int {
	switch t {
	case data.TypeBool:
		return storedKindBool
	case data.TypeInt:
		return storedKindInt
	case data.TypeString:
		return storedKindStr
	case data.TypeRef:
		return storedKindEntID
	default:
		return 0
	}
}
