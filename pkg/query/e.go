package query

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/context-fabric/context-fabric/pkg/feature"
)

// E is the edge-feature namespace (spec §4.7): E[name] dispatches to the
// underlying EdgeFeature.
type E struct {
	edges map[string]*feature.EdgeFeature
	rank  []uint32
}

// NewE builds the E namespace. rank is used to return B(node)'s symmetric
// neighborhood in canonical order.
func NewE(edges map[string]*feature.EdgeFeature, rank []uint32) *E {
	return &E{edges: edges, rank: rank}
}

// Get resolves a declared edge feature by name.
func (e *E) Get(name string) (*feature.EdgeFeature, bool) {
	ef, ok := e.edges[name]
	return ef, ok
}

// Names lists every loaded edge feature.
func (e *E) Names() []string {
	names := make([]string, 0, len(e.edges))
	for n := range e.edges {
		names = append(names, n)
	}
	return names
}

// Add wires a newly-loaded edge feature into the namespace.
func (e *E) Add(name string, ef *feature.EdgeFeature) { e.edges[name] = ef }

// B returns the symmetric neighborhood of node under the named edge
// feature: the union of outgoing and incoming targets, deduplicated and
// returned in canonical rank order (spec §4.5 "b(node)"). Uses a roaring
// bitmap so the union+dedup costs one pass regardless of how large f(node)
// and t(node) are individually.
func (e *E) B(name string, node uint32) []uint32 {
	ef, ok := e.edges[name]
	if !ok {
		return nil
	}
	bm := roaring.New()
	for _, n := range ef.F(node) {
		bm.Add(n)
	}
	for _, n := range ef.T(node) {
		bm.Add(n)
	}
	ids := bm.ToArray()
	if e.rank != nil {
		sort.Slice(ids, func(i, j int) bool { return e.rankOf(ids[i]) < e.rankOf(ids[j]) })
	}
	return ids
}

func (e *E) rankOf(node uint32) uint32 {
	if int(node) >= len(e.rank) {
		return 0
	}
	return e.rank[node]
}
