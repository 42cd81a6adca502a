package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sean-lynch/cozo/internal/data"
)

// Fact operations as stored in triples.op.
const (
	opRetract = 0
	opAssert  = 1
)

// Fact is one entity-attribute-value triple submitted for writing.
type Fact struct {
	Entity data.EntityID
	Attr   data.Keyword
	Value  data.DataValue
}

// NewTxID returns a fresh transaction identifier. UUIDv7 keeps IDs
// time-ordered, which makes the fact log scannable by write order.
func NewTxID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DefineAttribute adds an attribute to the catalog. Redefining an
// attribute with the identical declaration is a no-op; changing an
// existing declaration is an error, since stored facts depend on it.
func (s *Store) DefineAttribute(ctx context.Context, attr data.Attribute) error {
	if !attr.ValType.Valid() {
		return fmt.Errorf("attribute %s: unknown value type %q", attr.Keyword, attr.ValType)
	}
	if !attr.Indexing.Valid() {
		return fmt.Errorf("attribute %s: unknown indexing mode %q", attr.Keyword, attr.Indexing)
	}
	if attr.Keyword.IsVariable() || attr.Keyword.IsSynthetic() || attr.Keyword == "" {
		return fmt.Errorf("attribute name %q is not a legal attribute keyword", attr.Keyword)
	}

	existing, err := s.AttrByName(ctx, attr.Keyword)
	if err != nil {
		return err
	}
	if existing != nil {
		if *existing != attr {
			return fmt.Errorf("attribute %s already defined as %s", attr.Keyword, existing)
		}
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attributes (name, val_type, indexing)
		VALUES (?, ?, ?)
	`, string(attr.Keyword), string(attr.ValType), string(attr.Indexing))
	if err != nil {
		return fmt.Errorf("define attribute %s: %w", attr.Keyword, err)
	}
	return nil
}

// AssertAll writes a group of facts at one validity under one
// transaction ID and returns that ID. The whole group commits or none
// of it does.
func (s *Store) AssertAll(ctx context.Context, facts []Fact, vld data.Validity) (string, error) {
	return s.writeAll(ctx, facts, vld, opAssert)
}

// RetractAll writes retractions for a group of facts at one validity.
// A retracted fact stays visible to reads at earlier validities.
func (s *Store) RetractAll(ctx context.Context, facts []Fact, vld data.Validity) (string, error) {
	return s.writeAll(ctx, facts, vld, opRetract)
}

// Assert writes a single fact at the given validity.
func (s *Store) Assert(ctx context.Context, fact Fact, vld data.Validity) error {
	_, err := s.AssertAll(ctx, []Fact{fact}, vld)
	return err
}

// Retract writes a single retraction at the given validity.
func (s *Store) Retract(ctx context.Context, fact Fact, vld data.Validity) error {
	_, err := s.RetractAll(ctx, []Fact{fact}, vld)
	return err
}

func (s *Store) writeAll(ctx context.Context, facts []Fact, vld data.Validity, op int) (string, error) {
	txID := NewTxID()

	// Resolve attributes before taking the write transaction: the store
	// runs on a single SQLite connection, so catalog reads cannot happen
	// while the transaction holds it.
	attrs := make(map[data.Keyword]*data.Attribute, len(facts))
	for _, fact := range facts {
		if _, ok := attrs[fact.Attr]; ok {
			continue
		}
		attr, err := s.AttrByName(ctx, fact.Attr)
		if err != nil {
			return "", err
		}
		if attr == nil {
			return "", fmt.Errorf("write fact: attribute %s not found", fact.Attr)
		}
		attrs[fact.Attr] = attr
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin write: %w", err)
	}
	defer tx.Rollback()

	for _, fact := range facts {
		attr := attrs[fact.Attr]

		kind, vint, vstr, err := encodeValue(fact.Value)
		if err != nil {
			return "", fmt.Errorf("write fact for %s: %w", fact.Attr, err)
		}
		if kind != kindForType(attr.ValType) {
			return "", fmt.Errorf("write fact: value %s does not match %s type of %s",
				data.RenderValue(fact.Value), attr.ValType, fact.Attr)
		}

		if op == opAssert && attr.Indexing.IsUniqueIndex() {
			if err := checkUnique(ctx, tx, attr, fact, kind, vint, vstr, vld); err != nil {
				return "", err
			}
		}

		// A rewrite of the same fact at the same validity supersedes the
		// earlier op rather than conflicting.
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO triples
				(entity, attr, value_kind, value_int, value_str, vld, op, tx_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, int64(fact.Entity), string(fact.Attr), kind, vint, vstr, int64(vld), op, txID)
		if err != nil {
			return "", fmt.Errorf("write fact for %s: %w", fact.Attr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit write: %w", err)
	}
	return txID, nil
}

// checkUnique rejects an assert under a unique-indexed attribute when a
// different entity already holds the value live at that validity. The
// query runs on the write transaction so earlier facts in the same batch
// count.
func checkUnique(ctx context.Context, tx *sql.Tx, attr *data.Attribute, fact Fact, kind int, vint int64, vstr string, vld data.Validity) error {
	row := tx.QueryRowContext(ctx, `
		SELECT t.entity
		FROM triples t
		WHERE t.attr = ? AND t.value_kind = ? AND t.value_int = ? AND t.value_str = ?
		  AND t.entity <> ?
		  AND t.vld = (
			SELECT MAX(t2.vld)
			FROM triples t2
			WHERE t2.entity = t.entity AND t2.attr = t.attr
			  AND t2.value_kind = t.value_kind AND t2.value_int = t.value_int
			  AND t2.value_str = t.value_str AND t2.vld <= ?
		  )
		  AND t.op = 1
		LIMIT 1
	`, string(attr.Keyword), kind, vint, vstr, int64(fact.Entity), int64(vld))

	var holder int64
	if err := row.Scan(&holder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("unique check on %s: %w", attr.Keyword, err)
	}
	return fmt.Errorf("unique conflict: entity %d already holds %s %s",
		holder, attr.Keyword, data.RenderValue(fact.Value))
}
