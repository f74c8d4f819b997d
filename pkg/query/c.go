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

// Package query implements the F/E/C/L/N/T namespaces that make up the
// public query surface (spec §4.7): thin dispatchers over pkg/feature and
// pkg/computed views, bound together by pkg/fabric into an Api handle.
package query

import (
	"github.com/context-fabric/context-fabric/pkg/computed"
	"github.com/context-fabric/context-fabric/pkg/csr"
)

// Computed holds every derived index pkg/computed builds, materialized once
// per loaded store (spec §4.6). C dispatches to it by name.
type Computed struct {
	Rank []uint32
	Order []uint32

	LevUp   csr.CSR
	LevDown csr.CSR

	BoundaryFirst csr.CSR
	BoundaryLast  csr.CSR
	Touching      csr.CSR

	Levels []computed.LevelSummary

	Sections map[string]*computed.Sections // lang -> index
}

// RankOf returns node's canonical position.
func (c *Computed) RankOf(node uint32) uint32 {
	if int(node) >= len(c.Rank) {
		return 0
	}
	return c.Rank[node]
}

// NodeAt returns the node at canonical position i.
func (c *Computed) NodeAt(i int) (uint32, bool) {
	if i < 0 || i >= len(c.Order) {
		return 0, false
	}
	return c.Order[i], true
}

// LevUpOf returns node's embedders, in canonical order.
func (c *Computed) LevUpOf(node uint32) []uint32 { return rowOf(c.LevUp, node) }

// LevDownOf returns node's embeddees, in canonical order.
func (c *Computed) LevDownOf(node uint32) []uint32 { return rowOf(c.LevDown, node) }

// BoundaryFirstAt returns the nodes whose min slot is slot.
func (c *Computed) BoundaryFirstAt(slot uint32) []uint32 { return rowAt(c.BoundaryFirst, slot) }

// BoundaryLastAt returns the nodes whose max slot is slot.
func (c *Computed) BoundaryLastAt(slot uint32) []uint32 { return rowAt(c.BoundaryLast, slot) }

// TouchingAt returns every node whose oslots set contains slot.
func (c *Computed) TouchingAt(slot uint32) []uint32 { return rowAt(c.Touching, slot) }

func rowOf(c csr.CSR, node uint32) []uint32 {
	if node < 1 || int(node-1) >= c.Len() {
		return nil
	}
	return c.Row(int(node - 1))
}

func rowAt(c csr.CSR, slot uint32) []uint32 {
	if slot < 1 || int(slot-1) >= c.Len() {
		return nil
	}
	return c.Row(int(slot - 1))
}

// LevelsList returns the per-type size summary, largest containers first.
func (c *Computed) LevelsList() []computed.LevelSummary { return c.Levels }

// SectionIndex returns the section index for lang, if built.
func (c *Computed) SectionIndex(lang string) (*computed.Sections, bool) {
	s, ok := c.Sections[lang]
	return s, ok
}
