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

package fabric

import (
	"strconv"

	"github.com/c2h5oh/datasize"
	"github.com/pbnjay/memory"
)

// Stats reports the in-memory footprint of a loaded Fabric against the
// host's total memory, for operators sizing the working set (spec §5
// "Memory. Steady-state working set is the sum of mapped-and-touched
// pages").
type Stats struct {
	MappedBytes  datasize.ByteSize
	HostTotalMem datasize.ByteSize
	NodeCount    int
	EdgeCount    int
}

// Stats returns the current footprint of the store mapped by fb, plus how
// many node/edge features this Fabric's last Load/LoadAll call wired in.
func (fb *Fabric) Stats() Stats {
	var nodes, edges int
	if fb.current != nil {
		nodes = len(fb.current.F.Names())
		edges = len(fb.current.E.Names())
	}
	return Stats{
		MappedBytes:  datasize.ByteSize(fb.store.MappedBytes()),
		HostTotalMem: datasize.ByteSize(memory.TotalMemory()),
		NodeCount:    nodes,
		EdgeCount:    edges,
	}
}

// String renders a human-readable one-liner, e.g. "12.3 MB mapped / 16.0 GB
// host, 4 node features, 2 edge features".
func (s Stats) String() string {
	return s.MappedBytes.HumanReadable() + " mapped / " + s.HostTotalMem.HumanReadable() + " host, " +
		strconv.Itoa(s.NodeCount) + " node features, " + strconv.Itoa(s.EdgeCount) + " edge features"
}
