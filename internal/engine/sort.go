package engine

import (
	"fmt"
	"sort"

	"github.com/sean-lynch/cozo/internal/data"
)

// SortDir is the direction of one sort key.
type SortDir int

const (
	// Asc orders a key ascending.
	Asc SortDir = iota
	// Dsc orders a key descending.
	Dsc
)

// SortSpec is one (column, direction) sort key.
type SortSpec struct {
	Col data.Keyword
	Dir SortDir
}

// SortAndCollect materializes rows ordered by the given keys and
// projected to the head columns.
//
// Descending keys are expressed by wrapping the key value in
// data.Reversed, so the whole sort key stays one ascending lexicographic
// comparison. Ties are broken by original scan position, which makes the
// output deterministic and re-sorting with the same keys idempotent.
func SortAndCollect(rows *Rows, sorters []SortSpec, head []data.Keyword) (*Rows, error) {
	colIdx := make(map[data.Keyword]int, len(rows.Header))
	for i, kw := range rows.Header {
		colIdx[kw] = i
	}

	type idxSorter struct {
		idx int
		dir SortDir
	}
	idxSorters := make([]idxSorter, len(sorters))
	for i, s := range sorters {
		idx, ok := colIdx[s.Col]
		if !ok {
			return nil, fmt.Errorf("sort key %s not found in schema", s.Col)
		}
		idxSorters[i] = idxSorter{idx: idx, dir: s.Dir}
	}

	headIdx := make([]int, len(head))
	for i, kw := range head {
		idx, ok := colIdx[kw]
		if !ok {
			return nil, fmt.Errorf("output column %s not found in schema", kw)
		}
		headIdx[i] = idx
	}

	type entry struct {
		key   []data.DataValue
		tuple Tuple
	}
	entries := make([]entry, len(rows.Tuples))
	for i, tuple := range rows.Tuples {
		key := make([]data.DataValue, len(idxSorters))
		for ki, s := range idxSorters {
			val := tuple[s.idx]
			if s.dir == Dsc {
				val = data.Reversed{Inner: val}
			}
			key[ki] = val
		}
		entries[i] = entry{key: key, tuple: tuple}
	}

	// Stable sort: equal keys keep original scan order.
	sort.SliceStable(entries, func(a, b int) bool {
		ka, kb := entries[a].key, entries[b].key
		for i := range ka {
			if c := data.Compare(ka[i], kb[i]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	out := &Rows{Header: head}
	for _, e := range entries {
		projected := make(Tuple, len(headIdx))
		for pi, i := range headIdx {
			projected[pi] = e.tuple[i]
		}
		out.Tuples = append(out.Tuples, projected)
	}
	return out, nil
}
