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
	"strconv"
	"strings"

	"github.com/context-fabric/context-fabric/pkg/feature"
	"github.com/context-fabric/context-fabric/pkg/store"
	"github.com/context-fabric/context-fabric/pkg/stringpool"
)

// nodeFeatureResult holds a compiled node feature in memory prior to write,
// in whichever of the two payload shapes its @valueType preamble directive
// selected.
type nodeFeatureResult struct {
	name     string
	isString bool

	ints []int64 // len == maxNode, NullInt64 sentinel for absent

	pool   *stringpool.Builder
	strIdx []uint32 // len == maxNode, AbsentStringID sentinel for absent
}

// compileNodeFeature reads one generic node-feature source file: lines of
// "node<TAB>value", where "-" repeats the previous record's value and any
// node missing from the file is absent (spec §6). A node id repeated with a
// differing line is a fatal duplicate (spec §4.4 "duplicate node in node
// feature -> fatal").
func compileNodeFeature(path string, sf *sourceFile, maxNode uint32) (*nodeFeatureResult, error) {
	name, ok := sf.preamble["name"]
	if !ok || name == "" {
		return nil, store.Malformedf(path, 0, "missing @name directive")
	}
	isString := sf.preamble["valueType"] == "str"
	res := &nodeFeatureResult{name: name, isString: isString}

	seen := make(map[uint32]bool, len(sf.body))

	if isString {
		res.pool = stringpool.NewBuilder()
		res.strIdx = make([]uint32, maxNode)
		for i := range res.strIdx {
			res.strIdx[i] = feature.AbsentStringID
		}
	} else {
		res.ints = make([]int64, maxNode)
		for i := range res.ints {
			res.ints[i] = store.NullInt64
		}
	}

	var lastValue string
	haveLast := false

	for _, bl := range sf.body {
		fields := splitFields(bl.text, 2)
		if len(fields) != 2 {
			return nil, store.Malformedf(path, bl.line, "expected node<TAB>value, got %q", bl.text)
		}
		node, err := parseNode(path, bl.line, fields[0])
		if err != nil {
			return nil, err
		}
		if node < 1 || node > maxNode {
			return nil, store.InvariantViolationf("%s:%d: node %d out of range [1,%d]", path, bl.line, node, maxNode)
		}
		if seen[node] {
			return nil, store.InvariantViolationf("%s:%d: duplicate node %d", path, bl.line, node)
		}
		seen[node] = true

		value := fields[1]
		if value == "-" {
			if !haveLast {
				return nil, store.Malformedf(path, bl.line, "'-' with no previous value to repeat")
			}
			value = lastValue
		}
		lastValue = value
		haveLast = true

		if isString {
			res.strIdx[node-1] = res.pool.Intern(value)
		} else {
			v, err := parseInt64(path, bl.line, value)
			if err != nil {
				return nil, err
			}
			if v == store.NullInt64 {
				return nil, store.Malformedf(path, bl.line, "value %d collides with the absence sentinel", v)
			}
			res.ints[node-1] = v
		}
	}
	return res, nil
}

func writeNodeFeature(dir string, res *nodeFeatureResult) error {
	if res.isString {
		return writeStringPool(dir, store.KindFeatures, res.name, res.pool, res.strIdx)
	}
	return writeI64Array(dir, store.KindFeatures, res.name, res.ints)
}

// parseInt64 mirrors parseUint but parses a signed 64-bit value, since node
// feature payloads (unlike node ids and slot ids) may be signed.
func parseInt64(path string, line int, s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, store.Malformedf(path, line, "bad integer %q: %v", s, err)
	}
	return v, nil
}
