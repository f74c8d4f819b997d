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

// Package feature implements the thin typed facades over pkg/store
// described in spec §4.5: Otype, Oslots, NodeFeature, and
// EdgeFeature. Dispatch between int/string variants is done with a tagged
// Kind field, not reflection, per the design note in spec §9.
package feature

import (
	"github.com/context-fabric/context-fabric/pkg/store"
)

// TypeInterval is the contiguous node range occupied by one otype.
type TypeInterval struct {
	Name    string
	MinNode uint32
	MaxNode uint32
}

// Otype is the v(node) -> type_name facade (spec §4.5).
type Otype struct {
	slotType string
	maxSlot  uint32
	maxNode  uint32

	typeNames []string
	typeIdx   []uint32 // one entry per non-slot node, index into typeNames

	intervals    []TypeInterval
	intervalByID map[string]int // typeName -> index into intervals
}

// LoadOtype builds an Otype view from an open store.
func LoadOtype(s *store.MmapStore) (*Otype, error) {
	typeIdx, err := s.ArrayU32(store.KindWarp, store.OtypeArrayFile)
	if err != nil {
		return nil, err
	}
	var typeNames []string
	if err := s.OpenJSON(store.KindWarp, store.OtypeTypesFile, &typeNames); err != nil {
		return nil, err
	}

	o := &Otype{
		slotType:     s.SlotType(),
		maxSlot:      s.MaxSlot(),
		maxNode:      s.MaxNode(),
		typeNames:    typeNames,
		typeIdx:      typeIdx,
		intervalByID: make(map[string]int),
	}
	o.buildIntervals()
	return o, nil
}

// buildIntervals computes per-type (minNode, maxNode) in a single scan,
// relying on the compiler's invariant that same-typed non-slot nodes form
// a contiguous range (spec §3 "Entity: otype table").
func (o *Otype) buildIntervals() {
	o.intervals = append(o.intervals, TypeInterval{Name: o.slotType, MinNode: 1, MaxNode: o.maxSlot})
	o.intervalByID[o.slotType] = 0

	var curName string
	var curMin uint32
	for i, ti := range o.typeIdx {
		node := o.maxSlot + 1 + uint32(i)
		name := o.typeNames[ti]
		if name != curName {
			if curName != "" {
				o.intervals = append(o.intervals, TypeInterval{Name: curName, MinNode: curMin, MaxNode: node - 1})
			}
			curName = name
			curMin = node
		}
	}
	if curName != "" {
		o.intervals = append(o.intervals, TypeInterval{Name: curName, MinNode: curMin, MaxNode: o.maxNode})
	}
	for i, iv := range o.intervals {
		if i == 0 {
			continue
		}
		o.intervalByID[iv.Name] = i
	}
}

// V returns the type name of node, or "" if node is out of range.
func (o *Otype) V(node uint32) string {
	if node >= 1 && node <= o.maxSlot {
		return o.slotType
	}
	if node <= o.maxSlot || node > o.maxNode {
		return ""
	}
	idx := node - o.maxSlot - 1
	if int(idx) >= len(o.typeIdx) {
		return ""
	}
	return o.typeNames[o.typeIdx[idx]]
}

// SInterval returns the (minNode, maxNode) support of a type, and whether
// the type is known at all.
func (o *Otype) SInterval(typeName string) (min, max uint32, ok bool) {
	i, found := o.intervalByID[typeName]
	if !found {
		return 0, 0, false
	}
	iv := o.intervals[i]
	return iv.MinNode, iv.MaxNode, true
}

// AllTypes returns every declared type name, slot type first.
func (o *Otype) AllTypes() []string {
	names := make([]string, len(o.intervals))
	for i, iv := range o.intervals {
		names[i] = iv.Name
	}
	return names
}

func (o *Otype) MaxSlot() uint32   { return o.maxSlot }
func (o *Otype) MaxNode() uint32   { return o.maxNode }
func (o *Otype) SlotType() string  { return o.slotType }
