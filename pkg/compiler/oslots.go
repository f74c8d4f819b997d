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

package compiler

import (
	"os"
	"path/filepath"

	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/store"
)

const oslotsFileName = "oslots"

// compileOslots parses the oslots file into a CSR with one row per non-slot
// node (row i = node meta.maxSlot+1+i), validating each row is
// strictly-increasing (enforced by parseSlotRanges) and every slot id is in
// range (spec §4.4 step 3, "slot id out of range -> fatal").
func compileOslots(srcDir string, meta corpusMeta) (csr.CSR, error) {
	path := filepath.Join(srcDir, oslotsFileName)
	f, err := os.Open(path)
	if err != nil {
		return csr.CSR{}, store.NotPresentf("%s", path)
	}
	defer f.Close()

	sf, err := readSourceFile(path, f)
	if err != nil {
		return csr.CSR{}, err
	}

	want := int(meta.maxNode - meta.maxSlot)
	if len(sf.body) != want {
		return csr.CSR{}, store.Malformedf(path, 0, "oslots has %d records, want %d (maxNode-maxSlot)", len(sf.body), want)
	}

	b := csr.NewBuilder()
	for _, bl := range sf.body {
		slots, err := parseSlotRanges(path, bl.line, bl.text)
		if err != nil {
			return csr.CSR{}, err
		}
		if len(slots) == 0 {
			return csr.CSR{}, store.InvariantViolationf("%s:%d: node has empty oslots", path, bl.line)
		}
		for _, s := range slots {
			if s < 1 || s > meta.maxSlot {
				return csr.CSR{}, store.InvariantViolationf("%s:%d: slot %d out of range [1,%d]", path, bl.line, s, meta.maxSlot)
			}
		}
		b.AddRow(slots)
	}
	return b.Build(), nil
}

func writeOslots(dir string, c csr.CSR) error {
	return writeCSR(dir, store.KindWarp, store.OslotsCSRFile, c)
}
