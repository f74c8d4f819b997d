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

	"github.com/context-fabric/context-fabric/pkg/binfmt"
	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/stringpool"
	"github.com/context-fabric/context-fabric/pkg/store"
)

func createFile(dir string, kind store.Kind, name string) (*os.File, error) {
	sub := filepath.Join(dir, string(kind))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return nil, store.IoErrorf(sub, err)
	}
	path := filepath.Join(sub, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, store.IoErrorf(path, err)
	}
	return f, nil
}

func writeU32Array(dir string, kind store.Kind, name string, data []uint32) error {
	f, err := createFile(dir, kind, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binfmt.Write(f, binfmt.Header{
		Kind: binfmt.KindArray, DType: binfmt.DTypeU32, Rank: 1,
		Shape: uint64(len(data)), ItemSize: 4,
	}); err != nil {
		return store.IoErrorf(name, err)
	}
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		buf[i*4] = byte(v)
		buf[i*4+1] = byte(v >> 8)
		buf[i*4+2] = byte(v >> 16)
		buf[i*4+3] = byte(v >> 24)
	}
	if _, err := f.Write(buf); err != nil {
		return store.IoErrorf(name, err)
	}
	return store.IoErrorf(name, f.Sync())
}

func writeI64Array(dir string, kind store.Kind, name string, data []int64) error {
	f, err := createFile(dir, kind, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binfmt.Write(f, binfmt.Header{
		Kind: binfmt.KindArray, DType: binfmt.DTypeI64, Rank: 1,
		Shape: uint64(len(data)), ItemSize: 8,
	}); err != nil {
		return store.IoErrorf(name, err)
	}
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		u := uint64(v)
		for k := 0; k < 8; k++ {
			buf[i*8+k] = byte(u >> (8 * k))
		}
	}
	if _, err := f.Write(buf); err != nil {
		return store.IoErrorf(name, err)
	}
	return store.IoErrorf(name, f.Sync())
}

// writeCSR writes the <basename>.indptr / <basename>.data pair for an
// unvalued csr.CSR.
func writeCSR(dir string, kind store.Kind, basename string, c csr.CSR) error {
	if err := writeU64Array(dir, kind, basename+".indptr", binfmt.KindCSRIndptr, c.Indptr); err != nil {
		return err
	}
	return writeU32ArrayKind(dir, kind, basename+".data", binfmt.KindCSRData, c.Data)
}

// writeValuedCSRInt writes an indptr/data/values triple for an int-valued CSR.
func writeValuedCSRInt(dir string, kind store.Kind, basename string, c csr.ValuedCSR[int64]) error {
	if err := writeCSR(dir, kind, basename, c.CSR); err != nil {
		return err
	}
	return writeI64ArrayKind(dir, kind, basename+".values", binfmt.KindCSRValues, c.Values)
}

// writeValuedCSRStr writes an indptr/data/values triple for a string-valued
// CSR; Values holds string-pool ids.
func writeValuedCSRStr(dir string, kind store.Kind, basename string, c csr.ValuedCSR[uint32]) error {
	if err := writeCSR(dir, kind, basename, c.CSR); err != nil {
		return err
	}
	return writeU32ArrayKind(dir, kind, basename+".values", binfmt.KindCSRValues, c.Values)
}

func writeU64Array(dir string, kind store.Kind, name string, k binfmt.Kind, data []uint64) error {
	f, err := createFile(dir, kind, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binfmt.Write(f, binfmt.Header{
		Kind: k, DType: binfmt.DTypeU64, Rank: 1,
		Shape: uint64(len(data)), ItemSize: 8,
	}); err != nil {
		return store.IoErrorf(name, err)
	}
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(v >> (8 * b))
		}
	}
	if _, err := f.Write(buf); err != nil {
		return store.IoErrorf(name, err)
	}
	return store.IoErrorf(name, f.Sync())
}

func writeU32ArrayKind(dir string, kind store.Kind, name string, k binfmt.Kind, data []uint32) error {
	f, err := createFile(dir, kind, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binfmt.Write(f, binfmt.Header{
		Kind: k, DType: binfmt.DTypeU32, Rank: 1,
		Shape: uint64(len(data)), ItemSize: 4,
	}); err != nil {
		return store.IoErrorf(name, err)
	}
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		buf[i*4] = byte(v)
		buf[i*4+1] = byte(v >> 8)
		buf[i*4+2] = byte(v >> 16)
		buf[i*4+3] = byte(v >> 24)
	}
	if _, err := f.Write(buf); err != nil {
		return store.IoErrorf(name, err)
	}
	return store.IoErrorf(name, f.Sync())
}

func writeI64ArrayKind(dir string, kind store.Kind, name string, k binfmt.Kind, data []int64) error {
	f, err := createFile(dir, kind, name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := binfmt.Write(f, binfmt.Header{
		Kind: k, DType: binfmt.DTypeI64, Rank: 1,
		Shape: uint64(len(data)), ItemSize: 8,
	}); err != nil {
		return store.IoErrorf(name, err)
	}
	buf := make([]byte, 8*len(data))
	for i, v := range data {
		u := uint64(v)
		for b := 0; b < 8; b++ {
			buf[i*8+b] = byte(u >> (8 * b))
		}
	}
	if _, err := f.Write(buf); err != nil {
		return store.IoErrorf(name, err)
	}
	return store.IoErrorf(name, f.Sync())
}

// writeStringPool writes <name>.bytes and <name>.offsets from b, and
// <name>.idx from idx if non-nil (node features pass their per-node ids;
// string-valued edge features pass an all-absent column).
func writeStringPool(dir string, kind store.Kind, name string, b *stringpool.Builder, idx []uint32) error {
	bf, err := createFile(dir, kind, name+".bytes")
	if err != nil {
		return err
	}
	defer bf.Close()
	if err := b.WriteBytes(bf); err != nil {
		return store.IoErrorf(name+".bytes", err)
	}
	if err := bf.Sync(); err != nil {
		return store.IoErrorf(name+".bytes", err)
	}

	of, err := createFile(dir, kind, name+".offsets")
	if err != nil {
		return err
	}
	defer of.Close()
	if err := b.WriteOffsets(of); err != nil {
		return store.IoErrorf(name+".offsets", err)
	}
	if err := of.Sync(); err != nil {
		return store.IoErrorf(name+".offsets", err)
	}

	if idx != nil {
		if err := writeU32ArrayKind(dir, kind, name+".idx", binfmt.KindPoolIdx, idx); err != nil {
			return err
		}
	}
	return nil
}
