package query

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/context-fabric/context-fabric/pkg/feature"
)

// L is the locality namespace (spec §4.7): up/down/neighbor/sibling
// queries, all returned in canonical order, empty when undefined.
type L struct {
	otype  *feature.Otype
	oslots *feature.Oslots
	c      *Computed

	mu         sync.Mutex
	typeByRank map[string][]uint32 // cache: type name -> nodes of that type, rank-ascending
}

// NewL builds the L namespace.
func NewL(otype *feature.Otype, oslots *feature.Oslots, c *Computed) *L {
	return &L{otype: otype, oslots: oslots, c: c, typeByRank: make(map[string][]uint32)}
}

func (l *L) filterByType(nodes []uint32, otype string) []uint32 {
	if otype == "" {
		return nodes
	}
	out := make([]uint32, 0, len(nodes))
	for _, n := range nodes {
		if l.otype.V(n) == otype {
			out = append(out, n)
		}
	}
	return out
}

// U returns node's embedders, optionally filtered to otype.
func (l *L) U(node uint32, otype string) []uint32 {
	return l.filterByType(l.c.LevUpOf(node), otype)
}

// D returns node's embeddees, optionally filtered to otype.
func (l *L) D(node uint32, otype string) []uint32 {
	return l.filterByType(l.c.LevDownOf(node), otype)
}

// N returns node's neighbors — every other node sharing at least one slot —
// optionally filtered to otype. Built from the touching index with a
// roaring bitmap so overlapping slot rows dedup in one pass.
func (l *L) N(node uint32, otype string) []uint32 {
	slots := l.slotsOf(node)
	if len(slots) == 0 {
		return nil
	}
	bm := roaring.New()
	for _, s := range slots {
		for _, n := range l.c.TouchingAt(s) {
			if n != node {
				bm.Add(n)
			}
		}
	}
	ids := bm.ToArray()
	sort.Slice(ids, func(i, j int) bool { return l.c.RankOf(ids[i]) < l.c.RankOf(ids[j]) })
	return l.filterByType(ids, otype)
}

func (l *L) slotsOf(node uint32) []uint32 { return l.oslots.S(node) }

// P returns the node immediately preceding node, among nodes of otype (or
// node's own type if otype is ""), in canonical order.
func (l *L) P(node uint32, otype string) (uint32, bool) {
	prev, _, prevOK, _ := l.siblings(node, otype)
	return prev, prevOK
}

// X returns the node immediately following node, among nodes of otype (or
// node's own type if otype is ""), in canonical order.
func (l *L) X(node uint32, otype string) (uint32, bool) {
	_, next, _, nextOK := l.siblings(node, otype)
	return next, nextOK
}

func (l *L) siblings(node uint32, otype string) (prev uint32, next uint32, prevOK bool, nextOK bool) {
	typeName := otype
	if typeName == "" {
		typeName = l.otype.V(node)
	}
	list := l.typeNodesByRank(typeName)
	if len(list) == 0 {
		return 0, 0, false, false
	}
	nodeRank := l.c.RankOf(node)
	ranks := make([]uint32, len(list))
	for i, n := range list {
		ranks[i] = l.c.RankOf(n)
	}
	idx := sort.Search(len(ranks), func(i int) bool { return ranks[i] >= nodeRank })

	hasPrev := idx > 0
	if idx < len(list) && ranks[idx] == nodeRank {
		prevOK = hasPrev
		if hasPrev {
			prev = list[idx-1]
		}
		nextOK = idx+1 < len(list)
		if nextOK {
			next = list[idx+1]
		}
	} else {
		prevOK = hasPrev
		if hasPrev {
			prev = list[idx-1]
		}
		nextOK = idx < len(list)
		if nextOK {
			next = list[idx]
		}
	}
	return prev, next, prevOK, nextOK
}

func (l *L) typeNodesByRank(typeName string) []uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cached, ok := l.typeByRank[typeName]; ok {
		return cached
	}
	min, max, ok := l.otype.SInterval(typeName)
	if !ok {
		l.typeByRank[typeName] = nil
		return nil
	}
	list := make([]uint32, 0, max-min+1)
	for n := min; n <= max; n++ {
		list = append(list, n)
	}
	sort.Slice(list, func(i, j int) bool { return l.c.RankOf(list[i]) < l.c.RankOf(list[j]) })
	l.typeByRank[typeName] = list
	return list
}
