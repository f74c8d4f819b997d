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
	"strings"

	"github.com/context-fabric/context-fabric/pkg/store"
)

const otextFileName = "otext"

// compileOtext parses the otext source file into a store.OtextConfig.
//
// spec.md leaves the otext file's own grammar unspecified beyond "carries
// text-formatting config" (§4.4) and the shape it compiles to
// (sectionTypes/sectionFeatures/formats, §4.6). This package settles that
// as an Open Question: otext uses the same @key=value preamble every other
// source file uses, just with no body, so one source-file reader
// (readSourceFile) covers every file in the corpus directory and the
// otext grammar needs no separate tokenizer:
//
//	@sectionTypes=book,chapter,verse
//	@sectionFeatures.en=book,chapter,verse
//	@sectionFeatures.he=book@he,chapter,verse
//	@format.text-orig-full={word}{trailer}
//
// "sectionFeatures.<lang>" keys collect into OtextConfig.SectionFeatures[lang];
// "format.<name>" keys collect into OtextConfig.Formats[name]. The otext
// file is optional: a corpus with no section hierarchy simply omits it, and
// compileOtext then returns a zero OtextConfig.
func compileOtext(srcDir string) (store.OtextConfig, error) {
	var cfg store.OtextConfig
	path := filepath.Join(srcDir, otextFileName)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, store.IoErrorf(path, err)
	}
	defer f.Close()

	sf, err := readSourceFile(path, f)
	if err != nil {
		return cfg, err
	}
	if len(sf.body) != 0 {
		return cfg, store.Malformedf(path, sf.body[0].line, "otext takes no body records, only @ directives")
	}

	cfg.SectionFeatures = map[string][]string{}
	cfg.Formats = map[string]string{}

	for key, val := range sf.preamble {
		switch {
		case key == "sectionTypes":
			cfg.SectionTypes = splitCSV(val)
		case strings.HasPrefix(key, "sectionFeatures."):
			lang := strings.TrimPrefix(key, "sectionFeatures.")
			cfg.SectionFeatures[lang] = splitCSV(val)
		case strings.HasPrefix(key, "format."):
			name := strings.TrimPrefix(key, "format.")
			cfg.Formats[name] = val
		default:
			return cfg, store.Malformedf(path, 0, "unrecognized otext directive @%s", key)
		}
	}
	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
