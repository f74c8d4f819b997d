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
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/context-fabric/context-fabric/pkg/store"
)

// sourceFile is one parsed feature-file: its preamble directives and its
// body lines, still raw (spec §6 "first line: @ directives until a blank
// line; subsequent lines: records").
type sourceFile struct {
	path     string
	preamble map[string]string
	body     []bodyLine
}

type bodyLine struct {
	line int
	text string
}

// readSourceFile splits r into a preamble map and the remaining body lines,
// tracking 1-based line numbers for fatal error reporting (spec §4.4
// "malformed record -> fatal with file:line").
func readSourceFile(path string, r io.Reader) (*sourceFile, error) {
	sf := &sourceFile{path: path, preamble: map[string]string{}}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	lineNo := 0
	inPreamble := true
	for sc.Scan() {
		lineNo++
		text := sc.Text()
		if inPreamble {
			if strings.TrimSpace(text) == "" {
				inPreamble = false
				continue
			}
			if !strings.HasPrefix(text, "@") {
				return nil, store.Malformedf(path, lineNo, "expected @ directive in preamble, got %q", text)
			}
			key, val, ok := strings.Cut(text[1:], "=")
			if !ok {
				return nil, store.Malformedf(path, lineNo, "preamble directive %q missing '='", text)
			}
			sf.preamble[key] = val
			continue
		}
		sf.body = append(sf.body, bodyLine{line: lineNo, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, store.IoErrorf(path, err)
	}
	return sf, nil
}

// parseSlotRanges parses a comma-separated list of slot ids with "a-b" range
// shorthand (spec §4.4 "oslots ... comma-separated with range shorthand
// a-b") into a slice; a list that is not strictly increasing (including one
// with duplicates) is rejected as malformed.
func parseSlotRanges(path string, line int, text string) ([]uint32, error) {
	var out []uint32
	if strings.TrimSpace(text) == "" {
		return out, nil
	}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if isRange {
			a, err := strconv.ParseUint(lo, 10, 32)
			if err != nil {
				return nil, store.Malformedf(path, line, "bad range start %q: %v", part, err)
			}
			b, err := strconv.ParseUint(hi, 10, 32)
			if err != nil {
				return nil, store.Malformedf(path, line, "bad range end %q: %v", part, err)
			}
			if b < a {
				return nil, store.Malformedf(path, line, "descending range %q", part)
			}
			for v := a; v <= b; v++ {
				out = append(out, uint32(v))
			}
		} else {
			v, err := strconv.ParseUint(part, 10, 32)
			if err != nil {
				return nil, store.Malformedf(path, line, "bad slot id %q: %v", part, err)
			}
			out = append(out, uint32(v))
		}
	}
	for i := 1; i < len(out); i++ {
		if out[i] <= out[i-1] {
			return nil, store.Malformedf(path, line, "slot list %q not strictly increasing", text)
		}
	}
	return out, nil
}

// splitFields splits a tab-separated record line into at most n fields.
func splitFields(text string, n int) []string {
	return strings.SplitN(text, "\t", n)
}

func parseNode(path string, line int, s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, store.Malformedf(path, line, "bad node id %q: %v", s, err)
	}
	return uint32(v), nil
}

func parseUint(path string, line int, s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, store.Malformedf(path, line, "bad integer %q: %v", s, err)
	}
	return uint32(v), nil
}
