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

package compiler

import "github.com/context-fabric/context-fabric/pkg/csr"

// invertEdges builds the exact transpose of forward (row i = node i+1's
// outgoing targets, Data holding raw 1-based node ids) via histogram +
// prefix-sum + scatter (spec §4.4 step 4), producing an inverse CSR in the
// same row-i-equals-node-(i+1) addressing pkg/feature.EdgeFeature expects
// for both forward and inverse files.
//
// csr.Invert is not reused here: it addresses its output row by the literal
// value stored in forward's data column, which is exactly right when that
// column already holds 0-based row indices but is off by one against
// maxNode-sized, 1-based node ids — the convention every forward/inverse
// pair in this package actually uses. Rebuilding the histogram pass locally
// keeps both CSRs on the same addressing scheme.
func invertEdges[V any](forward csr.ValuedCSR[V], numNodes int) csr.ValuedCSR[V] {
	counts := make([]uint64, numNodes)
	for row := 0; row < forward.Len(); row++ {
		for _, dst := range forward.Row(row) {
			counts[dst-1]++
		}
	}

	indptr := make([]uint64, numNodes+1)
	for i := 0; i < numNodes; i++ {
		indptr[i+1] = indptr[i] + counts[i]
	}

	total := indptr[numNodes]
	data := make([]uint32, total)
	values := make([]V, total)
	cursor := append([]uint64(nil), indptr[:numNodes]...)

	for row := 0; row < forward.Len(); row++ {
		ids := forward.Row(row)
		vals := forward.RowValues(row)
		for k, dst := range ids {
			pos := cursor[dst-1]
			data[pos] = uint32(row + 1) // raw 1-based source node id
			values[pos] = vals[k]
			cursor[dst-1]++
		}
	}
	return csr.ValuedCSR[V]{CSR: csr.CSR{Indptr: indptr, Data: data}, Values: values}
}
