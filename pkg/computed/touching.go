package computed

import (
	"sort"

	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/feature"
)

// BuildTouching inverts oslots: row slot-1 holds every node whose oslots
// set contains that slot, in canonical rank order. It backs L.n's
// symmetric-neighbor computation (spec §4.7 "n(node, otype=?) returns
// neighbors sharing >=1 slot").
func BuildTouching(ot *feature.Otype, os *feature.Oslots, rank []uint32) csr.CSR {
	maxSlot := ot.MaxSlot()
	maxNode := ot.MaxNode()
	rows := make([][]uint32, maxSlot+1) // 1-indexed

	for node := uint32(1); node <= maxNode; node++ {
		for _, slot := range os.S(node) {
			rows[slot] = append(rows[slot], node)
		}
	}
	b := csr.NewBuilder()
	for slot := uint32(1); slot <= maxSlot; slot++ {
		row := rows[slot]
		sort.Slice(row, func(i, j int) bool { return rank[row[i]] < rank[row[j]] })
		b.AddRow(row)
	}
	return b.Build()
}
