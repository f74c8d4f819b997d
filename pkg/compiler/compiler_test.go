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

package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/context-fabric/context-fabric/pkg/compiler"
	"github.com/context-fabric/context-fabric/pkg/store"
)

// writeSrc writes name under dir with content, creating dir if needed.
func writeSrc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// writeMiniCorpusSource writes the scenario S1 textual corpus (spec §8 S1):
// maxSlot=3, slotType=word, nodes 4-5 type "sentence", oslots(4)=[1,2],
// oslots(5)=[2,3], node feature "text" 1->"a" 2->"b" 3->"c".
func writeMiniCorpusSource(t *testing.T, dir string) {
	t.Helper()
	writeSrc(t, dir, "otype", "@maxSlot=3\n@maxNode=5\n@slotType=word\n\nsentence\nsentence\n")
	writeSrc(t, dir, "oslots", "@maxSlot=3\n@maxNode=5\n\n1,2\n2,3\n")
	writeSrc(t, dir, "text", "@node=true\n@name=text\n@valueType=str\n\n1\ta\n2\tb\n3\tc\n")
}

func TestCompileMiniCorpusRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	storeRoot := t.TempDir()
	writeMiniCorpusSource(t, srcDir)

	require.NoError(t, compiler.Compile(context.Background(), srcDir, storeRoot, "v1", compiler.Options{}))

	s, err := store.Open(filepath.Join(storeRoot, "v1"))
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, uint32(3), s.MaxSlot())
	require.Equal(t, uint32(5), s.MaxNode())
	require.Equal(t, "word", s.SlotType())

	otype, err := s.ArrayU32(store.KindWarp, store.OtypeArrayFile)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 0}, otype)

	oslots, err := s.CSR(store.KindWarp, store.OslotsCSRFile)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, oslots.Row(0))
	require.Equal(t, []uint32{2, 3}, oslots.Row(1))

	pool, idx, err := s.OpenStringPool("text")
	require.NoError(t, err)
	v, ok := pool.LookupString(idx[0])
	require.True(t, ok)
	require.Equal(t, "a", v)
}

func TestCompileRejectsMalformedOtypeRecordCount(t *testing.T) {
	srcDir := t.TempDir()
	storeRoot := t.TempDir()
	writeSrc(t, srcDir, "otype", "@maxSlot=3\n@maxNode=5\n@slotType=word\n\nsentence\n")
	writeSrc(t, srcDir, "oslots", "@maxSlot=3\n@maxNode=5\n\n1,2\n2,3\n")

	err := compiler.Compile(context.Background(), srcDir, storeRoot, "v1", compiler.Options{})
	require.Error(t, err)
}

func TestCompileRejectsDuplicateNode(t *testing.T) {
	srcDir := t.TempDir()
	storeRoot := t.TempDir()
	writeMiniCorpusSource(t, srcDir)
	writeSrc(t, srcDir, "dup", "@node=true\n@name=dup\n@valueType=int\n\n1\t10\n1\t20\n")

	err := compiler.Compile(context.Background(), srcDir, storeRoot, "v1", compiler.Options{})
	require.Error(t, err)
}

func TestCompileRejectsOutOfRangeSlot(t *testing.T) {
	srcDir := t.TempDir()
	storeRoot := t.TempDir()
	writeSrc(t, srcDir, "otype", "@maxSlot=3\n@maxNode=5\n@slotType=word\n\nsentence\nsentence\n")
	writeSrc(t, srcDir, "oslots", "@maxSlot=3\n@maxNode=5\n\n1,2\n2,9\n")

	err := compiler.Compile(context.Background(), srcDir, storeRoot, "v1", compiler.Options{})
	require.Error(t, err)
}

func TestCompileRejectsNonContiguousType(t *testing.T) {
	srcDir := t.TempDir()
	storeRoot := t.TempDir()
	writeSrc(t, srcDir, "otype", "@maxSlot=3\n@maxNode=7\n@slotType=word\n\nsentence\nclause\nsentence\nsentence\n")
	writeSrc(t, srcDir, "oslots", "@maxSlot=3\n@maxNode=7\n\n1,2\n2\n3\n1\n")

	err := compiler.Compile(context.Background(), srcDir, storeRoot, "v1", compiler.Options{})
	require.Error(t, err)
}

func TestCompileIsDeterministic(t *testing.T) {
	srcDir := t.TempDir()
	writeMiniCorpusSource(t, srcDir)

	rootA, rootB := t.TempDir(), t.TempDir()
	require.NoError(t, compiler.Compile(context.Background(), srcDir, rootA, "v1", compiler.Options{}))
	require.NoError(t, compiler.Compile(context.Background(), srcDir, rootB, "v1", compiler.Options{}))

	for _, rel := range []string{
		filepath.Join("warp", store.OtypeArrayFile),
		filepath.Join("warp", store.OtypeTypesFile),
		filepath.Join("warp", store.OslotsCSRFile+".indptr"),
		filepath.Join("warp", store.OslotsCSRFile+".data"),
		filepath.Join("features", "text.bytes"),
		filepath.Join("features", "text.offsets"),
		filepath.Join("features", "text.idx"),
	} {
		a, err := os.ReadFile(filepath.Join(rootA, "v1", rel))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(rootB, "v1", rel))
		require.NoError(t, err)
		require.Equal(t, a, b, "file %s differs between runs", rel)
	}
}

func TestCompileConcurrentRunsAgreeWithSequential(t *testing.T) {
	srcDir := t.TempDir()
	writeMiniCorpusSource(t, srcDir)

	seqRoot := t.TempDir()
	require.NoError(t, compiler.Compile(context.Background(), srcDir, seqRoot, "v1", compiler.Options{Parallelism: 1}))

	const n = 4
	var wg sync.WaitGroup
	roots := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		roots[i] = t.TempDir()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = compiler.Compile(context.Background(), srcDir, roots[i], "v1", compiler.Options{})
		}(i)
	}
	wg.Wait()

	seqText, err := os.ReadFile(filepath.Join(seqRoot, "v1", "features", "text.bytes"))
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		got, err := os.ReadFile(filepath.Join(roots[i], "v1", "features", "text.bytes"))
		require.NoError(t, err)
		require.Equal(t, seqText, got)
	}
}
