package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sean-lynch/cozo/internal/data"
)

// AttrByName resolves an attribute definition from the catalog.
// A missing attribute returns (nil, nil); the caller decides whether
// absence is fatal. Implements the parse.Catalog lookup.
func (s *Store) AttrByName(ctx context.Context, name data.Keyword) (*data.Attribute, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, val_type, indexing
		FROM attributes
		WHERE name = ?
	`, string(name))

	var attr data.Attribute
	var n, vt, idx string
	if err := row.Scan(&n, &vt, &idx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query attribute %s: %w", name, err)
	}
	attr = data.Attribute{
		Keyword:  data.Keyword(n),
		ValType:  data.AttrValueType(vt),
		Indexing: data.AttrIndexing(idx),
	}
	return &attr, nil
}

// Attributes returns every catalog entry in name order.
func (s *Store) Attributes(ctx context.Context) ([]data.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, val_type, indexing
		FROM attributes
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	var attrs []data.Attribute
	for rows.Next() {
		var n, vt, idx string
		if err := rows.Scan(&n, &vt, &idx); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs = append(attrs, data.Attribute{
			Keyword:  data.Keyword(n),
			ValType:  data.AttrValueType(vt),
			Indexing: data.AttrIndexing(idx),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return attrs, nil
}

// EntityByUnique finds the entity owning the given value under a
// unique-indexed attribute at the given validity. Implements the
// parse.Catalog point lookup; a miss reports found=false, not an error.
func (s *Store) EntityByUnique(ctx context.Context, attr *data.Attribute, value data.DataValue, vld data.Validity) (data.EntityID, bool, error) {
	if !attr.Indexing.IsUniqueIndex() {
		return 0, false, fmt.Errorf("attribute %s is not a unique index", attr.Keyword)
	}

	kind, vint, vstr, err := encodeValue(value)
	if err != nil {
		return 0, false, fmt.Errorf("unique lookup on %s: %w", attr.Keyword, err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT t.entity
		FROM triples t
		WHERE t.attr = ? AND t.value_kind = ? AND t.value_int = ? AND t.value_str = ?
		  AND t.vld = (
			SELECT MAX(t2.vld)
			FROM triples t2
			WHERE t2.entity = t.entity AND t2.attr = t.attr
			  AND t2.value_kind = t.value_kind AND t2.value_int = t.value_int
			  AND t2.value_str = t.value_str AND t2.vld <= ?
		  )
		  AND t.op = 1
		ORDER BY t.entity ASC
		LIMIT 1
	`, string(attr.Keyword), kind, vint, vstr, int64(vld))

	var entity int64
	if err := row.Scan(&entity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("unique lookup on %s: %w", attr.Keyword, err)
	}
	return data.EntityID(entity), true, nil
}

// ScanRow is one live fact produced by an attribute scan: the entity
// slot and the value slot of a triple-scan relation.
type ScanRow struct {
	Entity data.EntityID
	Value  data.DataValue
}

// ScanAttribute returns every fact live for one attribute at the given
// validity, in (entity, value) order. Implements the engine.TripleSource
// scan behind TripleRelation nodes.
//
// The ORDER BY agrees with data.Compare because value_kind tags follow
// the cross-kind order and strings are stored NFC-normalized.
func (s *Store) ScanAttribute(ctx context.Context, attr data.Attribute, vld data.Validity) ([]ScanRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.entity, t.value_kind, t.value_int, t.value_str
		FROM triples t
		WHERE t.attr = ?
		  AND t.vld = (
			SELECT MAX(t2.vld)
			FROM triples t2
			WHERE t2.entity = t.entity AND t2.attr = t.attr
			  AND t2.value_kind = t.value_kind AND t2.value_int = t.value_int
			  AND t2.value_str = t.value_str AND t2.vld <= ?
		  )
		  AND t.op = 1
		ORDER BY t.entity ASC, t.value_kind ASC, t.value_int ASC, t.value_str ASC
	`, string(attr.Keyword), int64(vld))
	if err != nil {
		return nil, fmt.Errorf("scan attribute %s: %w", attr.Keyword, err)
	}
	defer rows.Close()

	var out []ScanRow
	for rows.Next() {
		var entity, vint int64
		var kind int
		var vstr string
		if err := rows.Scan(&entity, &kind, &vint, &vstr); err != nil {
			return nil, fmt.Errorf("scan triple of %s: %w", attr.Keyword, err)
		}
		value, err := decodeValue(kind, vint, vstr)
		if err != nil {
			return nil, fmt.Errorf("decode triple of %s: %w", attr.Keyword, err)
		}
		out = append(out, ScanRow{Entity: data.EntityID(entity), Value: value})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triples of %s: %w", attr.Keyword, err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []ScanRow{}
	}
	return out, nil
}
