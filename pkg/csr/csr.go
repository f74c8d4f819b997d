// Copyright 2024 The Context-Fabric Authors
// This file is part of Context-Fabric.
//
// Context-Fabric is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Context-Fabric is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Context-Fabric. If not, see <http://www.gnu.org/licenses/>.

// Package csr implements the compressed-sparse-row jagged array described in
// spec §4.2: an immutable n-row array of ids with an optional per-entry
// value column, shared by oslots, edge features, and the computed indices
// (levUp/levDown, boundary).
package csr

import "github.com/google/btree"

// CSR is an immutable jagged array of row-aligned ids.
type CSR struct {
	Indptr []uint64
	Data   []uint32
}

// Len returns the number of rows.
func (c CSR) Len() int {
	if len(c.Indptr) == 0 {
		return 0
	}
	return len(c.Indptr) - 1
}

// TotalEntries returns the total number of (row, id) pairs.
func (c CSR) TotalEntries() int { return len(c.Data) }

// Row returns the ids for row i. The result is empty, never an error, when
// row i has no entries (spec §6: "empty slices, not errors").
func (c CSR) Row(i int) []uint32 {
	if i < 0 || i >= c.Len() {
		return nil
	}
	return c.Data[c.Indptr[i]:c.Indptr[i+1]]
}

// ValuedCSR adds a values column aligned positionally with Data.
type ValuedCSR[V any] struct {
	CSR
	Values []V
}

// RowValues returns the values for row i, aligned with Row(i).
func (c ValuedCSR[V]) RowValues(i int) []V {
	if i < 0 || i >= c.Len() {
		return nil
	}
	return c.Values[c.Indptr[i]:c.Indptr[i+1]]
}

// Builder accumulates rows in the order AddRow is called; row i of the
// built CSR is the i-th call. Used where the caller already knows the
// correct row order (oslots, and the computed indices which add one row per
// node or slot in ascending id order).
type Builder struct {
	indptr []uint64
	data   []uint32
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{indptr: []uint64{0}}
}

// AddRow appends a row and returns its index.
func (b *Builder) AddRow(ids []uint32) int {
	b.data = append(b.data, ids...)
	b.indptr = append(b.indptr, uint64(len(b.data)))
	return len(b.indptr) - 2
}

// Build freezes the accumulated rows into a CSR.
func (b *Builder) Build() CSR {
	return CSR{Indptr: b.indptr, Data: b.data}
}

// ValuedBuilder is Builder plus a values column.
type ValuedBuilder[V any] struct {
	indptr []uint64
	data   []uint32
	values []V
}

// NewValuedBuilder returns an empty ValuedBuilder.
func NewValuedBuilder[V any]() *ValuedBuilder[V] {
	return &ValuedBuilder[V]{indptr: []uint64{0}}
}

// AddRow appends a row of (id, value) pairs; ids and vals must be the same
// length.
func (b *ValuedBuilder[V]) AddRow(ids []uint32, vals []V) int {
	b.data = append(b.data, ids...)
	b.values = append(b.values, vals...)
	b.indptr = append(b.indptr, uint64(len(b.data)))
	return len(b.indptr) - 2
}

// Build freezes the accumulated rows into a ValuedCSR.
func (b *ValuedBuilder[V]) Build() ValuedCSR[V] {
	return ValuedCSR[V]{CSR: CSR{Indptr: b.indptr, Data: b.data}, Values: b.values}
}

// edgeEntry is one (src, dst[, value]) record pending insertion into an
// EdgeBuilder's ordering structure.
type edgeEntry[V any] struct {
	src, dst uint32
	value    V
}

func lessEdge[V any](a, b edgeEntry[V]) bool {
	if a.src != b.src {
		return a.src < b.src
	}
	return a.dst < b.dst
}

// EdgeBuilder accepts (src, dst, value) triples in any order and emits a
// forward CSR with rows sorted by (src, dst), per spec §4.2's determinism
// requirement ("edges ... sorted by dst for determinism"). Internally it
// keeps pending edges in a google/btree-ordered set so Build only ever
// performs one ascending walk, regardless of insertion order.
type EdgeBuilder[V any] struct {
	tree *btree.BTreeG[edgeEntry[V]]
}

// NewEdgeBuilder returns an empty EdgeBuilder.
func NewEdgeBuilder[V any]() *EdgeBuilder[V] {
	return &EdgeBuilder[V]{tree: btree.NewG(32, lessEdge[V])}
}

// Add records one edge. Calling Add twice with the same (src, dst) adds a
// parallel multi-edge only if V differs in a way the tree treats as a
// distinct key; since edgeEntry's Less ignores value, a later Add with the
// same (src, dst) REPLACES the earlier one, matching how a source feature
// file's last record for a key wins.
func (b *EdgeBuilder[V]) Add(src, dst uint32, value V) {
	b.tree.ReplaceOrInsert(edgeEntry[V]{src: src, dst: dst, value: value})
}

// Len returns the number of distinct (src, dst) pairs recorded so far.
func (b *EdgeBuilder[V]) Len() int { return b.tree.Len() }

// Build freezes the accumulated edges into a forward ValuedCSR with numRows
// rows; row i holds the targets (and values) of node i, in ascending dst
// order. Nodes outside [0, numRows) that appear as src are an invariant
// violation the caller must have already excluded.
func (b *EdgeBuilder[V]) Build(numRows int) ValuedCSR[V] {
	indptr := make([]uint64, numRows+1)
	data := make([]uint32, 0, b.tree.Len())
	values := make([]V, 0, b.tree.Len())

	row := 0
	b.tree.Ascend(func(e edgeEntry[V]) bool {
		for row < int(e.src) {
			indptr[row+1] = indptr[row]
			row++
		}
		data = append(data, e.dst)
		values = append(values, e.value)
		indptr[row+1] = uint64(len(data))
		return true
	})
	for row < numRows {
		indptr[row+1] = indptr[row]
		row++
	}
	return ValuedCSR[V]{CSR: CSR{Indptr: indptr, Data: data}, Values: values}
}

// Invert builds the exact transpose of forward: row j of the result holds
// every i such that j appeared in forward.Row(i), together with the
// matching value, via the histogram + prefix-sum + scatter algorithm from
// spec §4.4 step 4. Entries within an inverted row come out sorted by
// source row ascending, since forward is walked row-by-row in order.
func Invert[V any](forward ValuedCSR[V], numCols int) ValuedCSR[V] {
	indptr := make([]uint64, numCols+1)
	n := forward.Len()

	for row := 0; row < n; row++ {
		for _, dst := range forward.Row(row) {
			indptr[dst+1]++
		}
	}
	for i := 0; i < numCols; i++ {
		indptr[i+1] += indptr[i]
	}

	total := indptr[numCols]
	data := make([]uint32, total)
	values := make([]V, total)
	cursor := append([]uint64(nil), indptr[:numCols]...)

	for row := 0; row < n; row++ {
		ids := forward.Row(row)
		vals := forward.RowValues(row)
		for k, dst := range ids {
			pos := cursor[dst]
			data[pos] = uint32(row)
			values[pos] = vals[k]
			cursor[dst]++
		}
	}
	return ValuedCSR[V]{CSR: CSR{Indptr: indptr, Data: data}, Values: values}
}
