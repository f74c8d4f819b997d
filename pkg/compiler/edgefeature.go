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
	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/feature"
	"github.com/context-fabric/context-fabric/pkg/store"
	"github.com/context-fabric/context-fabric/pkg/stringpool"
)

// edgeFeatureResult holds a compiled edge feature's forward/inverse pair in
// one of the three value shapes an @edgeValues/@valueType preamble pair can
// select: unvalued, int-valued, or string-valued.
type edgeFeatureResult struct {
	name      string
	hasValues bool
	isString  bool

	plainFwd csr.CSR
	plainInv csr.CSR

	intFwd csr.ValuedCSR[int64]
	intInv csr.ValuedCSR[int64]

	strFwd csr.ValuedCSR[uint32]
	strInv csr.ValuedCSR[uint32]
	pool   *stringpool.Builder
	// dummyIdx satisfies store.OpenStringPool's unconditional <name>.idx
	// read; edge string values are addressed by CSR position, not by node,
	// so every entry is absent and the loader discards this slice.
	dummyIdx []uint32
}

// compileEdgeFeature reads one generic edge-feature source file: lines of
// "src<TAB>dst[<TAB>value]" (spec §6), building the forward CSR directly via
// csr.EdgeBuilder (rows addressed by src-1, per pkg/feature/edge.go's
// convention) and the inverse via invertEdges.
func compileEdgeFeature(path string, sf *sourceFile, maxNode uint32) (*edgeFeatureResult, error) {
	name, ok := sf.preamble["name"]
	if !ok || name == "" {
		return nil, store.Malformedf(path, 0, "missing @name directive")
	}
	hasValues := sf.preamble["edgeValues"] == "true"
	isString := sf.preamble["valueType"] == "str"
	res := &edgeFeatureResult{name: name, hasValues: hasValues, isString: isString}

	switch {
	case !hasValues:
		b := csr.NewEdgeBuilder[struct{}]()
		if err := scanEdgeLines(path, sf, maxNode, hasValues, isString, func(src, dst uint32, _ int64, _ string) {
			b.Add(src-1, dst, struct{}{})
		}); err != nil {
			return nil, err
		}
		fwd := b.Build(int(maxNode))
		inv := invertEdges[struct{}](fwd, int(maxNode))
		res.plainFwd, res.plainInv = fwd.CSR, inv.CSR

	case hasValues && !isString:
		b := csr.NewEdgeBuilder[int64]()
		if err := scanEdgeLines(path, sf, maxNode, hasValues, isString, func(src, dst uint32, v int64, _ string) {
			b.Add(src-1, dst, v)
		}); err != nil {
			return nil, err
		}
		res.intFwd = b.Build(int(maxNode))
		res.intInv = invertEdges[int64](res.intFwd, int(maxNode))

	default: // hasValues && isString
		res.pool = stringpool.NewBuilder()
		b := csr.NewEdgeBuilder[uint32]()
		if err := scanEdgeLines(path, sf, maxNode, hasValues, isString, func(src, dst uint32, _ int64, v string) {
			b.Add(src-1, dst, res.pool.Intern(v))
		}); err != nil {
			return nil, err
		}
		res.strFwd = b.Build(int(maxNode))
		res.strInv = invertEdges[uint32](res.strFwd, int(maxNode))
		res.dummyIdx = make([]uint32, maxNode)
		for i := range res.dummyIdx {
			res.dummyIdx[i] = feature.AbsentStringID
		}
	}
	return res, nil
}

// scanEdgeLines parses every body line of sf and invokes add once per valid
// record; it is shared across all three value shapes so the record-format
// and range validation stay in one place.
func scanEdgeLines(path string, sf *sourceFile, maxNode uint32, hasValues, isString bool, add func(src, dst uint32, intVal int64, strVal string)) error {
	for _, bl := range sf.body {
		n := 2
		if hasValues {
			n = 3
		}
		fields := splitFields(bl.text, n)
		if len(fields) != n {
			return store.Malformedf(path, bl.line, "expected %d tab-separated fields, got %q", n, bl.text)
		}
		src, err := parseNode(path, bl.line, fields[0])
		if err != nil {
			return err
		}
		dst, err := parseNode(path, bl.line, fields[1])
		if err != nil {
			return err
		}
		if src < 1 || src > maxNode {
			return store.InvariantViolationf("%s:%d: src %d out of range [1,%d]", path, bl.line, src, maxNode)
		}
		if dst < 1 || dst > maxNode {
			return store.InvariantViolationf("%s:%d: dst %d out of range [1,%d]", path, bl.line, dst, maxNode)
		}
		if !hasValues {
			add(src, dst, 0, "")
			continue
		}
		if isString {
			add(src, dst, 0, fields[2])
		} else {
			v, err := parseInt64(path, bl.line, fields[2])
			if err != nil {
				return err
			}
			add(src, dst, v, "")
		}
	}
	return nil
}

func writeEdgeFeature(dir string, res *edgeFeatureResult) error {
	switch {
	case !res.hasValues:
		if err := writeCSR(dir, store.KindEdges, res.name, res.plainFwd); err != nil {
			return err
		}
		return writeCSR(dir, store.KindEdges, res.name+"_inv", res.plainInv)
	case res.hasValues && !res.isString:
		if err := writeValuedCSRInt(dir, store.KindEdges, res.name, res.intFwd); err != nil {
			return err
		}
		return writeValuedCSRInt(dir, store.KindEdges, res.name+"_inv", res.intInv)
	default:
		if err := writeValuedCSRStr(dir, store.KindEdges, res.name, res.strFwd); err != nil {
			return err
		}
		if err := writeValuedCSRStr(dir, store.KindEdges, res.name+"_inv", res.strInv); err != nil {
			return err
		}
		// store.OpenStringPool always resolves <name>.bytes/.offsets/.idx
		// under features/, regardless of whether the structural CSR lives
		// under edges/ or features/ — match that namespace here.
		return writeStringPool(dir, store.KindFeatures, res.name, res.pool, res.dummyIdx)
	}
}
