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

// Package stringpool implements the deduplicated string storage described in
// spec §4.1: a flat byte arena plus a monotone offsets table, interned per
// feature rather than globally so unrelated features' vocabularies don't
// pollute each other's mmap footprint.
package stringpool

import (
	"io"

	"github.com/spaolacci/murmur3"

	"github.com/context-fabric/context-fabric/pkg/binfmt"
)

// EmptyID is the sentinel id for the empty string. It is always present at
// index 0 and never needs to be interned explicitly.
const EmptyID uint32 = 0

// Builder accumulates strings during compilation and assigns each distinct
// content a dense id by first appearance, which is what makes compilation
// deterministic across runs (spec §4.4).
type Builder struct {
	data    []byte
	offsets []uint64 // len == numInterned+1, offsets[i]..offsets[i+1] bounds string i
	byHash  map[uint64][]uint32
}

// NewBuilder returns a Builder with the empty string pre-interned as id 0.
func NewBuilder() *Builder {
	b := &Builder{
		offsets: []uint64{0, 0},
		byHash:  make(map[uint64][]uint32),
	}
	return b
}

// Intern returns the id for s, assigning a new one on first appearance.
func (b *Builder) Intern(s string) uint32 {
	if s == "" {
		return EmptyID
	}
	h := murmur3.Sum64([]byte(s))
	for _, candidate := range b.byHash[h] {
		if b.stringAt(candidate) == s {
			return candidate
		}
	}
	id := uint32(len(b.offsets) - 1)
	b.data = append(b.data, s...)
	b.offsets = append(b.offsets, uint64(len(b.data)))
	b.byHash[h] = append(b.byHash[h], id)
	return id
}

func (b *Builder) stringAt(id uint32) string {
	if id == EmptyID {
		return ""
	}
	return string(b.data[b.offsets[id]:b.offsets[id+1]])
}

// Len returns the number of distinct interned strings, including the empty
// string at id 0.
func (b *Builder) Len() int { return len(b.offsets) - 1 }

// WriteBytes writes the pool.bytes file: a CFM1 header followed by the raw
// concatenated UTF-8 payload.
func (b *Builder) WriteBytes(w io.Writer) error {
	if err := binfmt.Write(w, binfmt.Header{
		Kind:  binfmt.KindPoolBytes,
		DType: binfmt.DTypeBytes,
		Rank:  1,
		Shape: uint64(len(b.data)),
	}); err != nil {
		return err
	}
	_, err := w.Write(b.data)
	return err
}

// WriteOffsets writes the pool.offsets file: a CFM1 header followed by
// n+1 little-endian u64 offsets.
func (b *Builder) WriteOffsets(w io.Writer) error {
	if err := binfmt.Write(w, binfmt.Header{
		Kind:     binfmt.KindPoolOffsets,
		DType:    binfmt.DTypeU64,
		Rank:     1,
		Shape:    uint64(len(b.offsets)),
		ItemSize: 8,
	}); err != nil {
		return err
	}
	buf := make([]byte, 8*len(b.offsets))
	for i, v := range b.offsets {
		putU64(buf[i*8:], v)
	}
	_, err := w.Write(buf)
	return err
}

func putU64(b []byte, v uint64) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 32)
	b[5] = byte(v >> 40)
	b[6] = byte(v >> 48)
	b[7] = byte(v >> 56)
}

// Pool is the read side: a zero-copy view over pool.bytes/pool.offsets
// payloads (the caller is responsible for stripping the CFM1 headers before
// constructing one — see pkg/store, which owns the mmap lifetime).
type Pool struct {
	data    []byte
	offsets []uint64
}

// NewPool wraps raw (post-header) bytes and offsets payloads. Both slices
// must outlive the returned Pool; typically they alias an mmap region.
func NewPool(data []byte, offsets []uint64) *Pool {
	return &Pool{data: data, offsets: offsets}
}

// Len returns the number of distinct interned strings, including the empty
// string at id 0.
func (p *Pool) Len() int {
	if len(p.offsets) == 0 {
		return 0
	}
	return len(p.offsets) - 1
}

// Lookup returns the bytes for id, or (nil, false) if id is out of range.
// It never allocates: the returned slice aliases the pool's backing bytes.
func (p *Pool) Lookup(id uint32) ([]byte, bool) {
	if id == EmptyID {
		return nil, true
	}
	i := int(id)
	if i < 0 || i+1 >= len(p.offsets) {
		return nil, false
	}
	return p.data[p.offsets[i]:p.offsets[i+1]], true
}

// LookupString is a convenience wrapper around Lookup that allocates a
// string copy; prefer Lookup on hot paths.
func (p *Pool) LookupString(id uint32) (string, bool) {
	b, ok := p.Lookup(id)
	if !ok {
		return "", false
	}
	return string(b), true
}
