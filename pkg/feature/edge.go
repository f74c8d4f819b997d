package feature

import (
	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/store"
	"github.com/context-fabric/context-fabric/pkg/stringpool"
)

// EdgeFeature is the f(node)/t(node) facade over a forward/inverse CSR pair
// (spec §4.5). When ValueKind() != EdgeValueKindNone, the values slices
// returned by FInt/TInt/FString/TString are aligned positionally with the
// node ids returned by F/T.
type EdgeFeature struct {
	name      string
	maxNode   uint32
	valueKind EdgeValueKind

	forward csr.CSR
	inverse csr.CSR

	intForward csr.ValuedCSR[int64]
	intInverse csr.ValuedCSR[int64]

	strForward csr.ValuedCSR[uint32]
	strInverse csr.ValuedCSR[uint32]
	pool       *stringpool.Pool
}

type EdgeValueKind int

const (
	EdgeValueKindNone EdgeValueKind = iota
	EdgeValueKindInt
	EdgeValueKindString
)

// LoadUnvaluedEdgeFeature opens a plain (no edge values) edge feature.
func LoadUnvaluedEdgeFeature(s *store.MmapStore, name string) (*EdgeFeature, error) {
	fwd, err := s.CSR(store.KindEdges, name)
	if err != nil {
		return nil, err
	}
	inv, err := s.CSR(store.KindEdges, name+"_inv")
	if err != nil {
		return nil, err
	}
	return &EdgeFeature{name: name, maxNode: s.MaxNode(), valueKind: EdgeValueKindNone, forward: fwd, inverse: inv}, nil
}

// LoadIntEdgeFeature opens an int-valued edge feature.
func LoadIntEdgeFeature(s *store.MmapStore, name string) (*EdgeFeature, error) {
	fwd, err := s.ValuedCSRInt(store.KindEdges, name)
	if err != nil {
		return nil, err
	}
	inv, err := s.ValuedCSRInt(store.KindEdges, name+"_inv")
	if err != nil {
		return nil, err
	}
	return &EdgeFeature{
		name: name, maxNode: s.MaxNode(), valueKind: EdgeValueKindInt,
		forward: fwd.CSR, inverse: inv.CSR,
		intForward: fwd, intInverse: inv,
	}, nil
}

// LoadStringEdgeFeature opens a string-valued edge feature.
func LoadStringEdgeFeature(s *store.MmapStore, name string) (*EdgeFeature, error) {
	fwd, err := s.ValuedCSRStr(store.KindEdges, name)
	if err != nil {
		return nil, err
	}
	inv, err := s.ValuedCSRStr(store.KindEdges, name+"_inv")
	if err != nil {
		return nil, err
	}
	pool, _, err := s.OpenStringPool(name)
	if err != nil {
		return nil, err
	}
	return &EdgeFeature{
		name: name, maxNode: s.MaxNode(), valueKind: EdgeValueKindString,
		forward: fwd.CSR, inverse: inv.CSR,
		strForward: fwd, strInverse: inv, pool: pool,
	}, nil
}

func (e *EdgeFeature) Name() string            { return e.name }
func (e *EdgeFeature) ValueKind() EdgeValueKind { return e.valueKind }

func (e *EdgeFeature) row(c csr.CSR, node uint32) []uint32 {
	if node < 1 || node > e.maxNode {
		return nil
	}
	i := int(node - 1)
	if i >= c.Len() {
		return nil
	}
	return c.Row(i)
}

// F returns the targets of node's outgoing edges, in compile-time (sorted
// by dst) order.
func (e *EdgeFeature) F(node uint32) []uint32 { return e.row(e.forward, node) }

// T returns the sources of node's incoming edges.
func (e *EdgeFeature) T(node uint32) []uint32 { return e.row(e.inverse, node) }

// FInt returns outgoing targets plus their aligned int values.
func (e *EdgeFeature) FInt(node uint32) ([]uint32, []int64) {
	return e.valuedRow(e.intForward, node)
}

// TInt returns incoming sources plus their aligned int values.
func (e *EdgeFeature) TInt(node uint32) ([]uint32, []int64) {
	return e.valuedRow(e.intInverse, node)
}

func (e *EdgeFeature) valuedRow(c csr.ValuedCSR[int64], node uint32) ([]uint32, []int64) {
	if node < 1 || node > e.maxNode {
		return nil, nil
	}
	i := int(node - 1)
	if i >= c.Len() {
		return nil, nil
	}
	return c.Row(i), c.RowValues(i)
}

// FString returns outgoing targets plus their aligned string values.
func (e *EdgeFeature) FString(node uint32) ([]uint32, []string) {
	return e.valuedStrRow(e.strForward, node)
}

// TString returns incoming sources plus their aligned string values.
func (e *EdgeFeature) TString(node uint32) ([]uint32, []string) {
	return e.valuedStrRow(e.strInverse, node)
}

func (e *EdgeFeature) valuedStrRow(c csr.ValuedCSR[uint32], node uint32) ([]uint32, []string) {
	if node < 1 || node > e.maxNode {
		return nil, nil
	}
	i := int(node - 1)
	if i >= c.Len() {
		return nil, nil
	}
	ids, valIDs := c.Row(i), c.RowValues(i)
	vals := make([]string, len(valIDs))
	for k, id := range valIDs {
		vals[k], _ = e.pool.LookupString(id)
	}
	return ids, vals
}
