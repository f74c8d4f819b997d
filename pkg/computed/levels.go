package computed

import (
	"sort"

	"github.com/context-fabric/context-fabric/pkg/feature"
)

// LevelSummary is one row of the per-type size summary (spec §3 "levels"):
// the larger a type's average slot coverage, the more it behaves like a
// "container" rather than a "leaf" in the corpus hierarchy.
type LevelSummary struct {
	Name     string
	AvgSlots float64
	MinNode  uint32
	MaxNode  uint32
}

// BuildLevels scans otype/oslots once for per-type averages and intervals,
// returning rows sorted by AvgSlots descending (largest containers first).
func BuildLevels(ot *feature.Otype, os *feature.Oslots) []LevelSummary {
	types := ot.AllTypes()
	out := make([]LevelSummary, 0, len(types))
	for _, name := range types {
		min, max, ok := ot.SInterval(name)
		if !ok {
			continue
		}
		var total, count int64
		for node := min; node <= max; node++ {
			total += int64(len(os.S(node)))
			count++
		}
		var avg float64
		if count > 0 {
			avg = float64(total) / float64(count)
		}
		out = append(out, LevelSummary{Name: name, AvgSlots: avg, MinNode: min, MaxNode: max})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgSlots != out[j].AvgSlots {
			return out[i].AvgSlots > out[j].AvgSlots
		}
		return out[i].Name < out[j].Name
	})
	return out
}
