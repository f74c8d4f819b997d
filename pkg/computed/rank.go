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

// Package computed builds the derived indices described in spec §4.6: rank
// and order (canonical node ordering), levUp/levDown (containment), levels
// (per-type size summary), boundary (first/last slot indices), and
// sections/structure (otext-driven heading maps).
package computed

import (
	"github.com/google/btree"

	"github.com/context-fabric/context-fabric/pkg/feature"
)

// rankKey orders one node for the canonical sort: ascending min slot,
// descending max slot, descending embedding level (oslots size — wider
// containers sort first among peers), ascending node id as the final
// tie-break. This resolves spec §9 Open Question 1: "recommended: by otype
// embedding level, then by node id ascending."
type rankKey struct {
	minSlot uint32
	maxSlot uint32
	level   int
	node    uint32
}

func lessRank(a, b rankKey) bool {
	if a.minSlot != b.minSlot {
		return a.minSlot < b.minSlot
	}
	if a.maxSlot != b.maxSlot {
		return a.maxSlot > b.maxSlot
	}
	if a.level != b.level {
		return a.level > b.level
	}
	return a.node < b.node
}

// BuildRank computes rank (node -> canonical position) and order (position
// -> node) over every node 1..maxNode, per spec §3/§4.6.
func BuildRank(ot *feature.Otype, os *feature.Oslots) (rank []uint32, order []uint32) {
	maxNode := ot.MaxNode()
	tree := btree.NewG(32, lessRank)

	for node := uint32(1); node <= maxNode; node++ {
		slots := os.S(node)
		if len(slots) == 0 {
			continue
		}
		tree.ReplaceOrInsert(rankKey{
			minSlot: slots[0],
			maxSlot: slots[len(slots)-1],
			level:   len(slots),
			node:    node,
		})
	}

	order = make([]uint32, 0, maxNode)
	rank = make([]uint32, maxNode+1) // 1-indexed; rank[0] unused
	tree.Ascend(func(k rankKey) bool {
		rank[k.node] = uint32(len(order))
		order = append(order, k.node)
		return true
	})
	return rank, order
}
