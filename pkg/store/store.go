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

// Package store implements the mmap-backed reader over a compiled
// Context-Fabric store directory (spec §4.3): typed, zero-copy views over
// arrays, CSRs, string pools and JSON sidecars, opened lazily and cached
// for the lifetime of the MmapStore.
package store

import (
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/edsrzf/mmap-go"

	"github.com/context-fabric/context-fabric/pkg/binfmt"
	"github.com/context-fabric/context-fabric/pkg/csr"
	"github.com/context-fabric/context-fabric/pkg/stringpool"
)

// NullInt64 is the sentinel for an absent int-valued feature entry.
const NullInt64 = int64(-1) << 62

type mapping struct {
	file *os.File
	mm   mmap.MMap
}

func (m *mapping) bytes() []byte { return []byte(m.mm) }

func (m *mapping) close() error {
	var err error
	if m.mm != nil {
		err = m.mm.Unmap()
	}
	if m.file != nil {
		if cerr := m.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// MmapStore opens a compiled store directory for read-only access. All
// exported methods are safe to call concurrently from multiple goroutines
// without external synchronization once Open has returned (spec §5).
type MmapStore struct {
	dir  string
	meta Meta

	mu       sync.Mutex
	mappings map[string]*mapping
}

// Open opens the store rooted at dir. dir must contain meta.json; a
// version mismatch against FormatVersion is reported as ErrSchemaMismatch
// so the caller (pkg/fabric) can trigger a recompile.
func Open(dir string) (*MmapStore, error) {
	metaPath := filepath.Join(dir, MetaFileName)
	f, err := os.Open(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotPresentf("%s", metaPath)
		}
		return nil, IoErrorf(metaPath, err)
	}
	defer f.Close()

	m, err := ReadMeta(f)
	if err != nil {
		return nil, Corruptionf(metaPath, "invalid meta.json: %v", err)
	}
	if m.Version != FormatVersion {
		return nil, SchemaMismatchf("store version %d, reader wants %d", m.Version, FormatVersion)
	}

	return &MmapStore{
		dir:      dir,
		meta:     m,
		mappings: make(map[string]*mapping),
	}, nil
}

// Close unmaps every file this store has opened. The store (and any
// feature/computed view built on it) must not be used afterward.
func (s *MmapStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for path, m := range s.mappings {
		if err := m.close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.mappings, path)
	}
	return firstErr
}

// Dir returns the root directory this store was opened from.
func (s *MmapStore) Dir() string { return s.dir }

// Meta returns the decoded meta.json document.
func (s *MmapStore) Meta() Meta { return s.meta }

func (s *MmapStore) MaxSlot() uint32    { return s.meta.MaxSlot }
func (s *MmapStore) MaxNode() uint32    { return s.meta.MaxNode }
func (s *MmapStore) SlotType() string   { return s.meta.SlotType }

// MappedBytes returns the total number of bytes currently mapped across
// every file this store has touched, for internal/metrics and Stats().
func (s *MmapStore) MappedBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, m := range s.mappings {
		total += int64(len(m.mm))
	}
	return total
}

func (s *MmapStore) path(kind Kind, filename string) string {
	return filepath.Join(s.dir, dirFor(kind), filename)
}

// openFile mmaps relPath (already joined to the store root) and caches it.
// Safe for concurrent use: the cache is protected by s.mu, and a file is
// only ever mapped once.
func (s *MmapStore) openFile(absPath string) (*mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.mappings[absPath]; ok {
		return m, nil
	}

	f, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NotPresentf("%s", absPath)
		}
		return nil, IoErrorf(absPath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, IoErrorf(absPath, err)
	}
	if info.Size() == 0 {
		// mmap-go refuses to map empty files; treat as an empty mapping.
		f.Close()
		return &mapping{}, nil
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, IoErrorf(absPath, err)
	}
	m := &mapping{file: f, mm: mm}
	s.mappings[absPath] = m
	return m, nil
}

// rawFile returns the full mapped bytes (including the CFM1 header) for a
// single-file payload (no header split into a separate file).
func (s *MmapStore) rawFile(kind Kind, filename string) ([]byte, error) {
	m, err := s.openFile(s.path(kind, filename))
	if err != nil {
		return nil, err
	}
	return m.bytes(), nil
}

// header reads and validates the CFM1 header prefixing b, returning the
// header and the payload that follows it.
func header(path string, b []byte) (binfmt.Header, []byte, error) {
	if len(b) < binfmt.OnDiskSize {
		return binfmt.Header{}, nil, Corruptionf(path, "file shorter than CFM1 header (%d bytes)", len(b))
	}
	h, err := binfmt.Decode(b[:binfmt.OnDiskSize])
	if err != nil {
		return binfmt.Header{}, nil, Corruptionf(path, "%v", err)
	}
	payload := b[binfmt.OnDiskSize:]
	wantLen := int(h.Shape) * int(h.ItemSize)
	if h.DType != binfmt.DTypeBytes && len(payload) < wantLen {
		return binfmt.Header{}, nil, Corruptionf(path, "payload %d bytes, header promises %d", len(payload), wantLen)
	}
	return h, payload, nil
}

// ArrayU32 opens a dense u32 array file (e.g. warp/otype).
func (s *MmapStore) ArrayU32(kind Kind, name string) ([]uint32, error) {
	p := s.path(kind, name)
	raw, err := s.rawFile(kind, name)
	if err != nil {
		return nil, err
	}
	h, payload, err := header(p, raw)
	if err != nil {
		return nil, err
	}
	if h.DType != binfmt.DTypeU32 {
		return nil, Corruptionf(p, "expected u32 array, got dtype %d", h.DType)
	}
	view := binfmt.Uint32View(payload)
	return view[:h.Shape], nil
}

// ArrayI64 opens a dense i64 array file (int-valued node features, rank,
// order-adjacent scalar arrays).
func (s *MmapStore) ArrayI64(kind Kind, name string) ([]int64, error) {
	p := s.path(kind, name)
	raw, err := s.rawFile(kind, name)
	if err != nil {
		return nil, err
	}
	h, payload, err := header(p, raw)
	if err != nil {
		return nil, err
	}
	if h.DType != binfmt.DTypeI64 {
		return nil, Corruptionf(p, "expected i64 array, got dtype %d", h.DType)
	}
	view := binfmt.Int64View(payload)
	return view[:h.Shape], nil
}

func (s *MmapStore) indptrU64(kind Kind, basename string) ([]uint64, error) {
	p := s.path(kind, basename+".indptr")
	raw, err := s.rawFile(kind, basename+".indptr")
	if err != nil {
		return nil, err
	}
	h, payload, err := header(p, raw)
	if err != nil {
		return nil, err
	}
	if h.DType != binfmt.DTypeU64 {
		return nil, Corruptionf(p, "expected u64 indptr, got dtype %d", h.DType)
	}
	view := binfmt.Uint64View(payload)
	return view[:h.Shape], nil
}

func (s *MmapStore) dataU32(kind Kind, basename string) ([]uint32, error) {
	p := s.path(kind, basename+".data")
	raw, err := s.rawFile(kind, basename+".data")
	if err != nil {
		return nil, err
	}
	h, payload, err := header(p, raw)
	if err != nil {
		return nil, err
	}
	if h.DType != binfmt.DTypeU32 {
		return nil, Corruptionf(p, "expected u32 data, got dtype %d", h.DType)
	}
	view := binfmt.Uint32View(payload)
	return view[:h.Shape], nil
}

// CSR opens an unvalued CSR by basename (e.g. "oslots" under KindWarp,
// "levup"/"boundary_first" under KindComputed).
func (s *MmapStore) CSR(kind Kind, basename string) (csr.CSR, error) {
	indptr, err := s.indptrU64(kind, basename)
	if err != nil {
		return csr.CSR{}, err
	}
	data, err := s.dataU32(kind, basename)
	if err != nil {
		return csr.CSR{}, err
	}
	return csr.CSR{Indptr: indptr, Data: data}, nil
}

// ValuedCSRInt opens a CSR plus an aligned int64 values column (edges/<name>
// with @valueType=int).
func (s *MmapStore) ValuedCSRInt(kind Kind, basename string) (csr.ValuedCSR[int64], error) {
	base, err := s.CSR(kind, basename)
	if err != nil {
		return csr.ValuedCSR[int64]{}, err
	}
	p := s.path(kind, basename+".values")
	raw, err := s.rawFile(kind, basename+".values")
	if err != nil {
		return csr.ValuedCSR[int64]{}, err
	}
	h, payload, err := header(p, raw)
	if err != nil {
		return csr.ValuedCSR[int64]{}, err
	}
	if h.DType != binfmt.DTypeI64 {
		return csr.ValuedCSR[int64]{}, Corruptionf(p, "expected i64 values, got dtype %d", h.DType)
	}
	vals := binfmt.Int64View(payload)[:h.Shape]
	if len(vals) != len(base.Data) {
		return csr.ValuedCSR[int64]{}, InvariantViolationf("%s: values length %d != data length %d", p, len(vals), len(base.Data))
	}
	return csr.ValuedCSR[int64]{CSR: base, Values: vals}, nil
}

// ValuedCSRStr opens a CSR plus an aligned string-pool-id values column
// (edges/<name> with @valueType=str). The caller pairs the returned ids
// with the feature's string pool (OpenStringPool(name)).
func (s *MmapStore) ValuedCSRStr(kind Kind, basename string) (csr.ValuedCSR[uint32], error) {
	base, err := s.CSR(kind, basename)
	if err != nil {
		return csr.ValuedCSR[uint32]{}, err
	}
	p := s.path(kind, basename+".values")
	raw, err := s.rawFile(kind, basename+".values")
	if err != nil {
		return csr.ValuedCSR[uint32]{}, err
	}
	h, payload, err := header(p, raw)
	if err != nil {
		return csr.ValuedCSR[uint32]{}, err
	}
	if h.DType != binfmt.DTypeU32 {
		return csr.ValuedCSR[uint32]{}, Corruptionf(p, "expected u32 values, got dtype %d", h.DType)
	}
	vals := binfmt.Uint32View(payload)[:h.Shape]
	if len(vals) != len(base.Data) {
		return csr.ValuedCSR[uint32]{}, InvariantViolationf("%s.values: length %d != data length %d", basename, len(vals), len(base.Data))
	}
	return csr.ValuedCSR[uint32]{CSR: base, Values: vals}, nil
}

// OpenStringPool opens the <name>.bytes / <name>.offsets pair for a string
// feature under features/, plus its <name>.idx per-node id column.
func (s *MmapStore) OpenStringPool(name string) (*stringpool.Pool, []uint32, error) {
	bytesPath := s.path(KindFeatures, name+".bytes")
	rawBytes, err := s.rawFile(KindFeatures, name+".bytes")
	if err != nil {
		return nil, nil, err
	}
	_, poolBytes, err := header(bytesPath, rawBytes)
	if err != nil {
		return nil, nil, err
	}

	offsetsPath := s.path(KindFeatures, name+".offsets")
	rawOffsets, err := s.rawFile(KindFeatures, name+".offsets")
	if err != nil {
		return nil, nil, err
	}
	oh, offPayload, err := header(offsetsPath, rawOffsets)
	if err != nil {
		return nil, nil, err
	}
	offsets := binfmt.Uint64View(offPayload)[:oh.Shape]

	idx, err := s.dataU32(KindFeatures, name+".idx")
	if err != nil {
		return nil, nil, err
	}

	return stringpool.NewPool(poolBytes, offsets), idx, nil
}

// OpenJSON decodes a JSON sidecar file into out.
func (s *MmapStore) OpenJSON(kind Kind, filename string, out any) error {
	p := s.path(kind, filename)
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return NotPresentf("%s", p)
		}
		return IoErrorf(p, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(out); err != nil {
		return Corruptionf(p, "invalid json: %v", err)
	}
	return nil
}

// Exists reports whether a file exists under kind/filename, without
// opening or mapping it.
func (s *MmapStore) Exists(kind Kind, filename string) bool {
	_, err := os.Stat(s.path(kind, filename))
	return err == nil
}

// ListFeatureFiles lists the basenames of declared node/edge features from
// meta.json, without touching the filesystem — used by explore().
func (s *MmapStore) ListFeatureFiles() (nodes, edges []string) {
	for _, f := range s.meta.Features.Node {
		nodes = append(nodes, f.Name)
	}
	for _, f := range s.meta.Features.Edge {
		edges = append(edges, f.Name)
	}
	return nodes, edges
}
