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

// Package binfmt implements the CFM1 fixed little-endian header shared by
// every binary file the compiler produces: dense arrays, CSR indptr/data
// columns, and string-pool byte/offset files. Keeping the header in one
// package means a reader never needs producer-side knowledge to tell a
// u32 array from a u64 CSR data column.
package binfmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the 4-byte file signature. Version bumps go here ("CFM2", ...).
var Magic = [4]byte{'C', 'F', 'M', '1'}

// Kind identifies what a header-prefixed file contains.
type Kind uint8

const (
	KindArray Kind = iota + 1
	KindCSRIndptr
	KindCSRData
	KindCSRValues
	KindPoolBytes
	KindPoolOffsets
	KindPoolIdx
)

func (k Kind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindCSRIndptr:
		return "csr-indptr"
	case KindCSRData:
		return "csr-data"
	case KindCSRValues:
		return "csr-values"
	case KindPoolBytes:
		return "pool-bytes"
	case KindPoolOffsets:
		return "pool-offsets"
	case KindPoolIdx:
		return "pool-idx"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// DType identifies the element type of the payload following the header.
type DType uint8

const (
	DTypeU32 DType = iota + 1
	DTypeU64
	DTypeI64
	DTypeBytes // opaque byte payload (string pool bytes file)
)

// ItemSize returns the width in bytes of one element of dt, or 0 for DTypeBytes
// (whose elements are variable-length and addressed via an offsets file).
func (dt DType) ItemSize() uint32 {
	switch dt {
	case DTypeU32:
		return 4
	case DTypeU64, DTypeI64:
		return 8
	default:
		return 0
	}
}

// HeaderSize is the size in bytes of the header fields that precede
// item_size (magic through shape); see OnDiskSize for the full header.
const HeaderSize = 16

// Header is the self-describing prefix of every binary store file
// (OnDiskSize bytes on disk).
type Header struct {
	Kind     Kind
	DType    DType
	Rank     uint8  // number of logical dimensions (1 for flat arrays)
	Reserved uint8
	Shape    uint64 // element count along the leading dimension
	ItemSize uint32 // bytes per element; 0 for DTypeBytes payloads
}

// Write encodes h as CFM1 and writes it to w.
func Write(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	copy(buf[0:4], Magic[:])
	buf[4] = byte(h.Kind)
	buf[5] = byte(h.DType)
	buf[6] = h.Rank
	buf[7] = h.Reserved
	binary.LittleEndian.PutUint64(buf[8:16], h.Shape)
	// ItemSize is appended after Shape logically, but the fixed layout in
	// spec §4.3 is {magic, kind, dtype, rank, reserved, shape, item_size} = 4+1+1+1+1+8+4 = 20 bytes.
	// The first 16 bytes are encoded in buf; ItemSize is written as a
	// trailing 4 bytes so on-disk layout matches exactly; see Read.
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], h.ItemSize)
	_, err := w.Write(sz[:])
	return err
}

// OnDiskSize is the true size of the header as written: 16 bytes of fixed
// fields plus the trailing 4-byte item_size, matching spec §4.3's literal
// {magic:4, kind:1, dtype:1, rank:1, reserved:1, shape:8, item_size:4}.
const OnDiskSize = HeaderSize + 4

// Read decodes a header from r.
func Read(r io.Reader) (Header, error) {
	var buf [OnDiskSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Decode(buf[:])
}

// Decode parses a header from an in-memory OnDiskSize-byte slice, used by
// mmap-backed readers that have the whole file already mapped.
func Decode(buf []byte) (Header, error) {
	if len(buf) < OnDiskSize {
		return Header{}, fmt.Errorf("binfmt: short header: %d bytes", len(buf))
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return Header{}, fmt.Errorf("binfmt: bad magic %q", buf[0:4])
	}
	h := Header{
		Kind:     Kind(buf[4]),
		DType:    DType(buf[5]),
		Rank:     buf[6],
		Reserved: buf[7],
		Shape:    binary.LittleEndian.Uint64(buf[8:16]),
		ItemSize: binary.LittleEndian.Uint32(buf[16:20]),
	}
	return h, nil
}
