package computed

import (
	"sort"

	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/feature"
)

// isStrictSupersetSorted reports whether super strictly contains every
// element of sub, given both are ascending and duplicate-free (as oslots
// rows always are — spec §3 "each row is strictly increasing").
func isStrictSupersetSorted(sub, super []uint32) bool {
	if len(super) <= len(sub) {
		return false
	}
	i := 0
	for _, v := range super {
		if i >= len(sub) {
			break
		}
		if sub[i] == v {
			i++
		}
	}
	return i == len(sub)
}

// BuildLevUpDown computes levUp/levDown for every node via the touching
// index (spec §4.6): a node m can only embed n if m covers n's first slot,
// so candidates are every node touching that slot, before the
// strict-superset filter runs. (touching is the general form of what the
// spec calls "the boundary_first index": boundary_first only carries nodes
// whose min slot is exactly s, which misses embedders that start earlier
// than n — touching carries every node covering s, which is what the
// filter actually needs to recover every true embedder; see scenario S1's
// `L.u(2) = [4,5]`, where node 4's min slot is 1, not 2.)
func BuildLevUpDown(ot *feature.Otype, os *feature.Oslots, touching csr.CSR, rank []uint32) (levUp, levDown csr.CSR) {
	maxNode := ot.MaxNode()
	up := make([][]uint32, maxNode+1)   // 1-indexed
	down := make([][]uint32, maxNode+1)

	for node := uint32(1); node <= maxNode; node++ {
		slots := os.S(node)
		if len(slots) == 0 {
			continue
		}
		minSlot := slots[0]
		if int(minSlot-1) >= touching.Len() {
			continue
		}
		for _, cand := range touching.Row(int(minSlot - 1)) {
			if cand == node {
				continue
			}
			candSlots := os.S(cand)
			if !isStrictSupersetSorted(slots, candSlots) {
				continue
			}
			up[node] = append(up[node], cand)
			down[cand] = append(down[cand], node)
		}
	}

	byRank := func(rows []uint32) {
		sort.Slice(rows, func(i, j int) bool { return rank[rows[i]] < rank[rows[j]] })
	}

	ub := csr.NewBuilder()
	db := csr.NewBuilder()
	for node := uint32(1); node <= maxNode; node++ {
		byRank(up[node])
		byRank(down[node])
		ub.AddRow(up[node])
		db.AddRow(down[node])
	}
	return ub.Build(), db.Build()
}
