package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/sean-lynch/cozo/internal/algebra"
	"github.com/sean-lynch/cozo/internal/data"
	"github.com/sean-lynch/cozo/internal/store"
)

// TripleSource is the physical scan behind TripleRelation nodes. The
// storage layer implements it; evaluation performs only reads.
type TripleSource interface {
	ScanAttribute(ctx context.Context, attr data.Attribute, vld data.Validity) ([]store.ScanRow, error)
}

// Tuple is one result row, parallel to a Rows header.
type Tuple []data.DataValue

// Rows is a materialized relation: a column header and the tuples under
// it, in production order.
type Rows struct {
	Header []data.Keyword
	Tuples []Tuple
}

// Executor evaluates relation trees against one triple source.
type Executor struct {
	src TripleSource
}

// NewExecutor creates an Executor over the given source.
func NewExecutor(src TripleSource) *Executor {
	return &Executor{src: src}
}

// Eval materializes a relation tree. The returned header equals the
// tree's BindingSet.
func (e *Executor) Eval(ctx context.Context, rel algebra.Relation) (*Rows, error) {
	switch node := rel.(type) {
	case algebra.UnitRelation, *algebra.UnitRelation:
		// One row, no columns.
		return &Rows{Tuples: []Tuple{{}}}, nil

	case *algebra.InlineFixedRelation:
		out := &Rows{Header: node.Bindings}
		for _, row := range node.Data {
			out.Tuples = append(out.Tuples, Tuple(row))
		}
		return out, nil

	case *algebra.TripleRelation:
		scanned, err := e.src.ScanAttribute(ctx, node.Attr, node.Vld)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", node.Attr.Keyword, err)
		}
		out := &Rows{Header: node.Bindings[:]}
		for _, row := range scanned {
			out.Tuples = append(out.Tuples, Tuple{data.EntID(row.Entity), row.Value})
		}
		return out, nil

	case *algebra.InnerJoin:
		return e.evalJoin(ctx, node)

	default:
		return nil, fmt.Errorf("unsupported relation type: %T", rel)
	}
}

// evalJoin hash-joins the children on the compiled key pairs, then drops
// the join's eliminated bindings from the output schema.
func (e *Executor) evalJoin(ctx context.Context, join *algebra.InnerJoin) (*Rows, error) {
	left, err := e.Eval(ctx, join.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.Eval(ctx, join.Right)
	if err != nil {
		return nil, err
	}

	leftIdx, err := keyIndices(left.Header, join.Joiner.LeftKeys)
	if err != nil {
		return nil, fmt.Errorf("left join keys: %w", err)
	}
	rightIdx, err := keyIndices(right.Header, join.Joiner.RightKeys)
	if err != nil {
		return nil, fmt.Errorf("right join keys: %w", err)
	}

	// Build side: bucket right tuples by their key image. With empty key
	// lists every tuple lands in one bucket and the join degenerates to
	// the cross product, which is exactly the compiled meaning.
	buckets := make(map[string][]Tuple)
	for _, rt := range right.Tuples {
		k, err := joinKey(rt, rightIdx)
		if err != nil {
			return nil, err
		}
		buckets[k] = append(buckets[k], rt)
	}

	out := &Rows{}
	for _, lt := range left.Tuples {
		k, err := joinKey(lt, leftIdx)
		if err != nil {
			return nil, err
		}
		for _, rt := range buckets[k] {
			combined := make(Tuple, 0, len(lt)+len(rt))
			combined = append(combined, lt...)
			combined = append(combined, rt...)
			out.Tuples = append(out.Tuples, combined)
		}
	}

	// Project away bindings the join eliminates. The surviving column
	// order matches join.BindingSet().
	combinedHeader := make([]data.Keyword, 0, len(left.Header)+len(right.Header))
	combinedHeader = append(combinedHeader, left.Header...)
	combinedHeader = append(combinedHeader, right.Header...)

	var keep []int
	for i, kw := range combinedHeader {
		if join.ToEliminate.Has(kw) {
			continue
		}
		keep = append(keep, i)
		out.Header = append(out.Header, kw)
	}
	if len(keep) < len(combinedHeader) {
		for ti, tuple := range out.Tuples {
			projected := make(Tuple, len(keep))
			for pi, i := range keep {
				projected[pi] = tuple[i]
			}
			out.Tuples[ti] = projected
		}
	}
	return out, nil
}

// keyIndices resolves key columns to positions in a header.
func keyIndices(header []data.Keyword, keys []data.Keyword) ([]int, error) {
	idx := make([]int, len(keys))
	for ki, key := range keys {
		found := -1
		for hi, kw := range header {
			if kw == key {
				found = hi
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("join key %s not found in schema", key)
		}
		idx[ki] = found
	}
	return idx, nil
}

// joinKey builds the hash image of a tuple's key columns. The encoding
// distinguishes value kinds and NFC-normalizes strings, so two values
// hash equal exactly when data.Compare calls them equal.
func joinKey(tuple Tuple, idx []int) (string, error) {
	var b strings.Builder
	for _, i := range idx {
		switch v := tuple[i].(type) {
		case data.Bool:
			fmt.Fprintf(&b, "b%t\x00", bool(v))
		case data.Int:
			fmt.Fprintf(&b, "i%d\x00", int64(v))
		case data.String:
			s := norm.NFC.String(string(v))
			fmt.Fprintf(&b, "s%d:%s\x00", len(s), s)
		case data.EntID:
			fmt.Fprintf(&b, "e%d\x00", uint64(v))
		default:
			return "", fmt.Errorf("unsupported join key value: %T", tuple[i])
		}
	}
	return b.String(), nil
}
