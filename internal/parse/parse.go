package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sean-lynch/cozo/internal/data"
)

// Parser resolves raw query clauses against an attribute catalog.
//
// Parsing reads the catalog (attribute definitions, unique-index point
// lookups) at the validity supplied per call; it never writes. A Parser
// holds no per-query state and can be reused across queries against the
// same catalog.
type Parser struct {
	catalog Catalog
}

// NewParser creates a Parser over the given catalog.
func NewParser(catalog Catalog) *Parser {
	return &Parser{catalog: catalog}
}

// ParseClauses parses a whole query payload: a JSON array of clauses.
// The first malformed clause aborts parsing; there is no partial result.
func (p *Parser) ParseClauses(ctx context.Context, payload json.RawMessage, vld data.Validity) ([]Clause, error) {
	var rawClauses []json.RawMessage
	if err := json.Unmarshal(payload, &rawClauses); err != nil {
		return nil, NewClauseError(ErrCodeMalformedClause, payload, "expect array of clauses")
	}

	clauses := make([]Clause, 0, len(rawClauses))
	for _, raw := range rawClauses {
		clause, err := p.ParseClause(ctx, raw, vld)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

// ParseClause parses one clause: a 3-element array
// [entity, attribute, value].
func (p *Parser) ParseClause(ctx context.Context, raw json.RawMessage, vld data.Validity) (Clause, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 3 {
		return nil, NewClauseError(ErrCodeMalformedClause, raw, "expect 3-element clause [entity, attribute, value]")
	}

	// Positions resolve left to right, so a bad entity is reported even
	// when the attribute is also bad.
	entity, err := p.parseEntity(ctx, parts[0], vld)
	if err != nil {
		return nil, err
	}
	attr, err := p.parseAttr(ctx, parts[1])
	if err != nil {
		return nil, err
	}
	value, err := p.parseValue(ctx, parts[2], attr, vld)
	if err != nil {
		return nil, err
	}

	return AttrTripleClause{Attr: attr, Entity: entity, Value: value}, nil
}

// parseAttr resolves the attribute position, which must be a plain name
// string known to the catalog.
func (p *Parser) parseAttr(ctx context.Context, raw json.RawMessage) (data.Attribute, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return data.Attribute{}, NewClauseError(ErrCodeMalformedClause, raw, "expect attribute name string")
	}

	attr, err := p.catalog.AttrByName(ctx, data.Keyword(name))
	if err != nil {
		return data.Attribute{}, fmt.Errorf("look up attribute %s: %w", name, err)
	}
	if attr == nil {
		return data.Attribute{}, NewClauseError(ErrCodeAttrNotFound, raw, "attribute %s not found", name)
	}
	return *attr, nil
}

// parseEntity resolves the entity position of a clause:
//
//   - "?x" / "_x"       → free variable
//   - reserved word     → error, must be quoted
//   - unsigned integer  → literal EntityID
//   - {attrName: value} → unique-index lookup (0 sentinel on miss)
//
// Any other shape is malformed.
func (p *Parser) parseEntity(ctx context.Context, raw json.RawMessage, vld data.Validity) (MaybeVariable[data.EntityID], error) {
	var zero MaybeVariable[data.EntityID]

	switch firstByte(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return zero, NewClauseError(ErrCodeMalformedClause, raw, "bad entity string")
		}
		kw := data.Keyword(s)
		if kw.IsVariable() {
			return Variable[data.EntityID](kw), nil
		}
		if kw.IsReserved() {
			return zero, NewClauseError(ErrCodeReservedUnquoted, raw, "reserved string values must be quoted")
		}
		return zero, NewClauseError(ErrCodeMalformedClause, raw, "unrecognized entity form")

	case '{':
		eid, err := p.entityFromMap(ctx, raw, vld)
		if err != nil {
			return zero, err
		}
		return Constant(eid), nil

	default:
		v, err := data.TypeRef.Coerce(raw)
		if err != nil {
			return zero, NewClauseError(ErrCodeMalformedClause, raw, "unrecognized entity form")
		}
		return Constant(data.EntityID(v.(data.EntID))), nil
	}
}

// parseValue resolves the value position of a clause:
//
//   - "?x" / "_x"        → free variable
//   - reserved word      → error, must be quoted
//   - {attrName: value}  → unique-index entity lookup, when the clause
//     attribute is reference-typed
//   - {"const": value}   → explicit constant escape (bypasses variable
//     and reserved-word detection)
//   - any other scalar   → coerced to the attribute's declared type
func (p *Parser) parseValue(ctx context.Context, raw json.RawMessage, attr data.Attribute, vld data.Validity) (MaybeVariable[data.DataValue], error) {
	var zero MaybeVariable[data.DataValue]

	switch firstByte(raw) {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return zero, NewClauseError(ErrCodeMalformedClause, raw, "bad value string")
		}
		kw := data.Keyword(s)
		if kw.IsVariable() {
			return Variable[data.DataValue](kw), nil
		}
		if kw.IsReserved() {
			return zero, NewClauseError(ErrCodeReservedUnquoted, raw, "reserved string values must be quoted")
		}
		// A plain string is an ordinary scalar constant.
		return p.coerceConst(attr, raw)

	case '{':
		if attr.ValType.IsRefType() {
			eid, err := p.entityFromMap(ctx, raw, vld)
			if err != nil {
				return zero, err
			}
			return Constant[data.DataValue](data.EntID(eid)), nil
		}
		return p.constFromMap(attr, raw)

	default:
		return p.coerceConst(attr, raw)
	}
}

// entityFromMap performs a unique-index lookup from a single-field object
// {attrName: value}. The referenced attribute must be unique-indexed; a
// lookup miss yields the EntityID(0) sentinel, not an error.
func (p *Parser) entityFromMap(ctx context.Context, raw json.RawMessage, vld data.Validity) (data.EntityID, error) {
	name, inner, err := singleField(raw)
	if err != nil {
		return 0, err
	}

	attr, err := p.catalog.AttrByName(ctx, data.Keyword(name))
	if err != nil {
		return 0, fmt.Errorf("look up attribute %s: %w", name, err)
	}
	if attr == nil {
		return 0, NewClauseError(ErrCodeAttrNotFound, raw, "attribute %s not found", name)
	}
	if !attr.Indexing.IsUniqueIndex() {
		return 0, NewClauseError(ErrCodeAttrNotUniqueIndex, raw, "attribute %s is not a unique index", name)
	}

	value, err := attr.ValType.Coerce(inner)
	if err != nil {
		return 0, WrapClauseError(ErrCodeTypeMismatch, raw, err)
	}

	eid, found, err := p.catalog.EntityByUnique(ctx, attr, value, vld)
	if err != nil {
		return 0, fmt.Errorf("unique lookup on %s: %w", name, err)
	}
	if !found {
		return 0, nil // sentinel: matches nothing downstream
	}
	return eid, nil
}

// constFromMap handles the explicit-constant escape {"const": value} in
// the value position of a non-reference attribute.
func (p *Parser) constFromMap(attr data.Attribute, raw json.RawMessage) (MaybeVariable[data.DataValue], error) {
	var zero MaybeVariable[data.DataValue]

	name, inner, err := singleField(raw)
	if err != nil {
		return zero, err
	}
	if name != "const" {
		return zero, NewClauseError(ErrCodeMalformedClause, raw, "expect object with exactly one field named 'const'")
	}
	return p.coerceConst(attr, inner)
}

// coerceConst coerces a raw scalar to the attribute's declared type.
func (p *Parser) coerceConst(attr data.Attribute, raw json.RawMessage) (MaybeVariable[data.DataValue], error) {
	value, err := attr.ValType.Coerce(raw)
	if err != nil {
		return MaybeVariable[data.DataValue]{}, WrapClauseError(ErrCodeTypeMismatch, raw, err)
	}
	return Constant(value), nil
}

// singleField decodes an object with exactly one field and returns its
// key and raw value.
func singleField(raw json.RawMessage) (string, json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil || len(m) != 1 {
		return "", nil, NewClauseError(ErrCodeMalformedClause, raw, "expect object with exactly one field")
	}
	for k, v := range m {
		return k, v, nil
	}
	return "", nil, NewClauseError(ErrCodeMalformedClause, raw, "expect object with exactly one field")
}

// firstByte returns the first non-space byte of a JSON value, or 0.
func firstByte(raw json.RawMessage) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}
