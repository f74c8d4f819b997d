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
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/context-fabric/context-fabric/pkg/store"
)

// corpusMeta is learned from the otype file's preamble (spec §4.4 step 1:
// "discover and parse preambles to learn maxSlot, maxNode, slotType").
type corpusMeta struct {
	maxSlot  uint32
	maxNode  uint32
	slotType string
}

const otypeFileName = "otype"

func parseCorpusMeta(sf *sourceFile) (corpusMeta, error) {
	var m corpusMeta
	raw, ok := sf.preamble["maxSlot"]
	if !ok {
		return m, store.Malformedf(sf.path, 0, "missing @maxSlot directive")
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return m, store.Malformedf(sf.path, 0, "bad @maxSlot=%q: %v", raw, err)
	}
	m.maxSlot = uint32(v)

	raw, ok = sf.preamble["maxNode"]
	if !ok {
		return m, store.Malformedf(sf.path, 0, "missing @maxNode directive")
	}
	v, err = strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return m, store.Malformedf(sf.path, 0, "bad @maxNode=%q: %v", raw, err)
	}
	m.maxNode = uint32(v)
	if m.maxNode < m.maxSlot {
		return m, store.Malformedf(sf.path, 0, "maxNode %d < maxSlot %d", m.maxNode, m.maxSlot)
	}

	m.slotType, ok = sf.preamble["slotType"]
	if !ok {
		return m, store.Malformedf(sf.path, 0, "missing @slotType directive")
	}
	return m, nil
}

// otypeResult is the compiled form of the otype file: a dense index per
// non-slot node into typeNames, plus the deduped name table, assigned by
// first appearance in canonical (ascending node) order for determinism
// (spec §4.4 "pool ids assigned by first appearance").
type otypeResult struct {
	typeNames []string
	typeIdx   []uint32
}

// compileOtype parses and validates the otype file, checking that each
// type's nodes form one contiguous range (spec §4.4 step 2).
func compileOtype(srcDir string, meta corpusMeta) (*otypeResult, error) {
	path := filepath.Join(srcDir, otypeFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil, store.NotPresentf("%s", path)
	}
	defer f.Close()

	sf, err := readSourceFile(path, f)
	if err != nil {
		return nil, err
	}

	want := int(meta.maxNode - meta.maxSlot)
	if len(sf.body) != want {
		return nil, store.Malformedf(path, 0, "otype has %d records, want %d (maxNode-maxSlot)", len(sf.body), want)
	}

	res := &otypeResult{typeIdx: make([]uint32, want)}
	ids := map[string]uint32{}
	closed := map[string]bool{}
	var lastName string

	for i, bl := range sf.body {
		name := bl.text
		if name == "" {
			return nil, store.Malformedf(path, bl.line, "empty type name")
		}
		if name != lastName {
			if lastName != "" {
				closed[lastName] = true
			}
			if closed[name] {
				return nil, store.InvariantViolationf("%s:%d: type %q is not contiguous", path, bl.line, name)
			}
		}
		id, ok := ids[name]
		if !ok {
			id = uint32(len(res.typeNames))
			ids[name] = id
			res.typeNames = append(res.typeNames, name)
		}
		res.typeIdx[i] = id
		lastName = name
	}
	return res, nil
}

func writeOtype(dir string, res *otypeResult) error {
	if err := writeU32Array(dir, store.KindWarp, store.OtypeArrayFile, res.typeIdx); err != nil {
		return err
	}
	path := filepath.Join(dir, string(store.KindWarp), store.OtypeTypesFile)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return store.IoErrorf(path, err)
	}
	b, err := json.Marshal(res.typeNames)
	if err != nil {
		return store.IoErrorf(path, err)
	}
	return store.IoErrorf(path, os.WriteFile(path, b, 0o644))
}
