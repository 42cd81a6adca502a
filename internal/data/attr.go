package data

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AttrValueType is the declared type of an attribute's values. Every raw
// value reaching a typed position is coerced through the declared type;
// there is no dynamic typing at the storage layer.
type AttrValueType string

const (
	// TypeRef marks an entity-valued attribute. Ref-typed values are how
	// edges between entities are stored.
	TypeRef AttrValueType = "ref"

	// TypeInt marks a 64-bit integer attribute.
	TypeInt AttrValueType = "int"

	// TypeString marks a text attribute.
	TypeString AttrValueType = "string"

	// TypeBool marks a boolean attribute.
	TypeBool AttrValueType = "bool"
)

// IsRefType reports whether values of this type are entity references.
// The clause parser uses this to decide whether a map in the value
// position means "unique-index entity lookup" or is malformed.
func (t AttrValueType) IsRefType() bool {
	return t == TypeRef
}

// Valid reports whether t is one of the declared value types.
func (t AttrValueType) Valid() bool {
	switch t {
	case TypeRef, TypeInt, TypeString, TypeBool:
		return true
	}
	return false
}

// CoercionError reports a raw value that does not fit an attribute's
// declared type. It carries the raw JSON for diagnostics.
type CoercionError struct {
	Type AttrValueType
	Raw  json.RawMessage
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("value %s does not coerce to type %s", string(e.Raw), e.Type)
}

// Coerce converts a raw JSON scalar into a DataValue of the declared type.
//
// Rules:
//   - ref: unsigned integer literal → EntID
//   - int: integer literal → Int (floats are rejected, not truncated)
//   - string: JSON string → String
//   - bool: JSON true/false → Bool
//
// Anything else fails with a CoercionError.
func (t AttrValueType) Coerce(raw json.RawMessage) (DataValue, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, &CoercionError{Type: t, Raw: raw}
	}

	switch t {
	case TypeRef:
		n, ok := decodeInteger(trimmed)
		if !ok || n < 0 {
			return nil, &CoercionError{Type: t, Raw: raw}
		}
		return EntID(n), nil

	case TypeInt:
		n, ok := decodeInteger(trimmed)
		if !ok {
			return nil, &CoercionError{Type: t, Raw: raw}
		}
		return Int(n), nil

	case TypeString:
		if trimmed[0] != '"' {
			return nil, &CoercionError{Type: t, Raw: raw}
		}
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, &CoercionError{Type: t, Raw: raw}
		}
		return String(s), nil

	case TypeBool:
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, &CoercionError{Type: t, Raw: raw}
		}
		return Bool(b), nil

	default:
		return nil, fmt.Errorf("unknown attribute value type %q", t)
	}
}

// decodeInteger parses a JSON number as int64, rejecting floats. The
// leading-quote check matters: json.Number has string kind, so without it
// Unmarshal would accept a quoted numeric string like "30".
func decodeInteger(raw []byte) (int64, bool) {
	if raw[0] == '"' {
		return 0, false
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return 0, false
	}
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return i, true
}

// AttrIndexing is the indexing mode of an attribute.
type AttrIndexing string

const (
	// IndexNone leaves the attribute with only the default entity index.
	IndexNone AttrIndexing = "none"

	// IndexUnique enforces at most one entity per distinct value and
	// enables value-to-entity point lookups in query clauses.
	IndexUnique AttrIndexing = "unique"
)

// IsUniqueIndex reports whether value-to-entity lookups are allowed.
func (i AttrIndexing) IsUniqueIndex() bool {
	return i == IndexUnique
}

// Valid reports whether i is a declared indexing mode.
func (i AttrIndexing) Valid() bool {
	return i == IndexNone || i == IndexUnique
}

// Attribute is one catalog entry. The query compiler treats attributes as
// immutable: it looks them up by name and never writes them back.
type Attribute struct {
	// Keyword is the attribute's interned name, e.g. "person/friend".
	Keyword Keyword

	// ValType is the declared type of the attribute's values.
	ValType AttrValueType

	// Indexing is the attribute's indexing mode.
	Indexing AttrIndexing
}

func (a Attribute) String() string {
	return fmt.Sprintf("%s:%s/%s", a.Keyword, a.ValType, a.Indexing)
}
