package feature

import (
	"sort"

	"github.com/context-fabric/context-fabric/pkg/store"
	"github.com/context-fabric/context-fabric/pkg/stringpool"
)

// NodeFeatureKind tags which payload a NodeFeature carries. The query layer
// dispatches on this instead of reflecting over the value (spec §9 design
// note: "use enum dispatch in the hot inner methods, not runtime
// reflection").
type NodeFeatureKind int

const (
	NodeFeatureKindInt NodeFeatureKind = iota
	NodeFeatureKindString
)

// AbsentStringID marks "no value" in a string feature's per-node index
// column. It is distinct from stringpool.EmptyID, which means "present,
// value is the empty string" (spec §3 node feature, scenario S4).
const AbsentStringID uint32 = ^uint32(0)

// NodeFeature is the v(node) -> value | absent facade (spec §4.5). Exactly
// one of the int or string payload is populated, selected by Kind.
type NodeFeature struct {
	name    string
	kind    NodeFeatureKind
	maxNode uint32

	ints []int64 // len == maxNode, ints[node-1]; store.NullInt64 == absent

	pool   *stringpool.Pool
	strIdx []uint32 // len == maxNode, strIdx[node-1]; AbsentStringID == absent
}

// LoadIntNodeFeature opens an int-valued node feature array.
func LoadIntNodeFeature(s *store.MmapStore, name string) (*NodeFeature, error) {
	vals, err := s.ArrayI64(store.KindFeatures, name)
	if err != nil {
		return nil, err
	}
	return &NodeFeature{name: name, kind: NodeFeatureKindInt, maxNode: s.MaxNode(), ints: vals}, nil
}

// LoadStringNodeFeature opens a string-valued node feature pool + index.
func LoadStringNodeFeature(s *store.MmapStore, name string) (*NodeFeature, error) {
	pool, idx, err := s.OpenStringPool(name)
	if err != nil {
		return nil, err
	}
	return &NodeFeature{name: name, kind: NodeFeatureKindString, maxNode: s.MaxNode(), pool: pool, strIdx: idx}, nil
}

func (f *NodeFeature) Name() string           { return f.name }
func (f *NodeFeature) Kind() NodeFeatureKind   { return f.kind }

// VInt returns the int64 value of node. Valid only when Kind() ==
// NodeFeatureKindInt; otherwise always reports absent.
func (f *NodeFeature) VInt(node uint32) (int64, bool) {
	if f.kind != NodeFeatureKindInt || node < 1 || node > f.maxNode {
		return 0, false
	}
	v := f.ints[node-1]
	if v == store.NullInt64 {
		return 0, false
	}
	return v, true
}

// VString returns the string value of node. Valid only when Kind() ==
// NodeFeatureKindString; otherwise always reports absent.
func (f *NodeFeature) VString(node uint32) (string, bool) {
	if f.kind != NodeFeatureKindString || node < 1 || node > f.maxNode {
		return "", false
	}
	id := f.strIdx[node-1]
	if id == AbsentStringID {
		return "", false
	}
	return f.pool.LookupString(id)
}

// Items returns a fresh, restartable cursor over (node, value) pairs where
// the value is present (spec §9: "each call returns a fresh iterator").
func (f *NodeFeature) Items() *NodeFeatureIter {
	return &NodeFeatureIter{f: f}
}

type NodeFeatureIter struct {
	f    *NodeFeature
	node uint32
	ok   bool
}

func (it *NodeFeatureIter) Next() bool {
	for it.node < it.f.maxNode {
		it.node++
		if it.f.kind == NodeFeatureKindInt {
			if _, present := it.f.VInt(it.node); present {
				return true
			}
		} else {
			if _, present := it.f.VString(it.node); present {
				return true
			}
		}
	}
	return false
}

func (it *NodeFeatureIter) Node() uint32 { return it.node }
func (it *NodeFeatureIter) Int() int64 {
	v, _ := it.f.VInt(it.node)
	return v
}
func (it *NodeFeatureIter) String() string {
	v, _ := it.f.VString(it.node)
	return v
}

// IntFreq and StringFreq are one row of a FreqList result.
type IntFreq struct {
	Value int64
	Count int
}

type StringFreq struct {
	Value string
	Count int
}

// FreqListInt builds a value -> count histogram, sorted by count descending
// then value ascending, for an int-kind feature. Built on demand per spec
// §4.5 ("freqList() on demand via histogram").
func (f *NodeFeature) FreqListInt() []IntFreq {
	counts := make(map[int64]int)
	it := f.Items()
	for it.Next() {
		counts[it.Int()]++
	}
	out := make([]IntFreq, 0, len(counts))
	for v, c := range counts {
		out = append(out, IntFreq{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// FreqListString is the string-kind analogue of FreqListInt.
func (f *NodeFeature) FreqListString() []StringFreq {
	counts := make(map[string]int)
	it := f.Items()
	for it.Next() {
		counts[it.String()]++
	}
	out := make([]StringFreq, 0, len(counts))
	for v, c := range counts {
		out = append(out, StringFreq{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
