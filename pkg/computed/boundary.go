package computed

import (
	"sort"

	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/feature"
)

// BuildBoundary scans oslots once and groups nodes by their min/max slot,
// each row finalized in canonical rank order (spec §4.6 "boundary").
func BuildBoundary(ot *feature.Otype, os *feature.Oslots, rank []uint32) (first, last csr.CSR) {
	maxSlot := ot.MaxSlot()
	maxNode := ot.MaxNode()

	firstRows := make([][]uint32, maxSlot+1) // 1-indexed; index 0 unused
	lastRows := make([][]uint32, maxSlot+1)

	for node := uint32(1); node <= maxNode; node++ {
		slots := os.S(node)
		if len(slots) == 0 {
			continue
		}
		min, max := slots[0], slots[len(slots)-1]
		firstRows[min] = append(firstRows[min], node)
		lastRows[max] = append(lastRows[max], node)
	}

	byRank := func(rows []uint32) {
		sort.Slice(rows, func(i, j int) bool { return rank[rows[i]] < rank[rows[j]] })
	}

	fb := csr.NewBuilder()
	lb := csr.NewBuilder()
	for slot := uint32(1); slot <= maxSlot; slot++ {
		byRank(firstRows[slot])
		byRank(lastRows[slot])
		fb.AddRow(firstRows[slot])
		lb.AddRow(lastRows[slot])
	}
	return fb.Build(), lb.Build()
}
