package feature

import (
	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/store"
)

// Oslots is the s(node) -> slot-ids facade (spec §4.5). For a slot itself,
// s(slot) is the virtual singleton row [slot] — no storage is spent on it.
type Oslots struct {
	c       csr.CSR
	maxSlot uint32
	maxNode uint32
}

// LoadOslots builds an Oslots view from an open store.
func LoadOslots(s *store.MmapStore) (*Oslots, error) {
	c, err := s.CSR(store.KindWarp, store.OslotsCSRFile)
	if err != nil {
		return nil, err
	}
	return &Oslots{c: c, maxSlot: s.MaxSlot(), maxNode: s.MaxNode()}, nil
}

// S returns the (ordered, strictly increasing) slot ids node covers.
// Out-of-range nodes return nil.
func (o *Oslots) S(node uint32) []uint32 {
	if node >= 1 && node <= o.maxSlot {
		return []uint32{node}
	}
	if node <= o.maxSlot || node > o.maxNode {
		return nil
	}
	row := int(node - o.maxSlot - 1)
	if row >= o.c.Len() {
		return nil
	}
	return o.c.Row(row)
}

// MinSlot and MaxSlot return the first/last slot covered by node, and
// whether node is in range and covers at least one slot.
func (o *Oslots) MinSlot(node uint32) (uint32, bool) {
	s := o.S(node)
	if len(s) == 0 {
		return 0, false
	}
	return s[0], true
}

func (o *Oslots) MaxSlotOf(node uint32) (uint32, bool) {
	s := o.S(node)
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// Items iterates every non-slot node in ascending id order.
func (o *Oslots) Items() *OslotsIter {
	return &OslotsIter{o: o, node: o.maxSlot}
}

type OslotsIter struct {
	o    *Oslots
	node uint32
}

func (it *OslotsIter) Next() bool {
	if it.node >= it.o.maxNode {
		return false
	}
	it.node++
	return true
}

func (it *OslotsIter) Node() uint32     { return it.node }
func (it *OslotsIter) Slots() []uint32  { return it.o.S(it.node) }
