package computed_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/context-fabric/context-fabric/pkg/binfmt"
	"github.com/context-fabric/context-fabric/pkg/computed"
	"github.com/context-fabric/context-fabric/pkg/feature"
	"github.com/context-fabric/context-fabric/pkg/store"
)

func writeFile(t *testing.T, dir string, kind store.Kind, name string, h binfmt.Header, payload []byte) {
	t.Helper()
	sub := filepath.Join(dir, string(kind))
	require.NoError(t, os.MkdirAll(sub, 0o755))
	var buf bytes.Buffer
	require.NoError(t, binfmt.Write(&buf, h))
	buf.Write(payload)
	require.NoError(t, os.WriteFile(filepath.Join(sub, name), buf.Bytes(), 0o644))
}

func u32Bytes(vals ...uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		b[i*4], b[i*4+1], b[i*4+2], b[i*4+3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	}
	return b
}

func u64Bytes(vals ...uint64) []byte {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		for k := 0; k < 8; k++ {
			b[i*8+k] = byte(v >> (8 * k))
		}
	}
	return b
}

// buildMiniCorpus mirrors scenario S1: maxSlot=3, slotType=word, nodes 4,5
// are "sentence" with oslots(4)=[1,2], oslots(5)=[2,3].
func buildMiniCorpus(t *testing.T) *store.MmapStore {
	t.Helper()
	dir := t.TempDir()

	m := store.Meta{Version: store.FormatVersion, MaxSlot: 3, MaxNode: 5, SlotType: "word"}
	f, err := os.Create(filepath.Join(dir, store.MetaFileName))
	require.NoError(t, err)
	require.NoError(t, store.WriteMeta(f, m))
	require.NoError(t, f.Close())

	writeFile(t, dir, store.KindWarp, store.OtypeArrayFile,
		binfmt.Header{Kind: binfmt.KindArray, DType: binfmt.DTypeU32, Rank: 1, Shape: 2, ItemSize: 4},
		u32Bytes(0, 0))
	typeNames, err := json.Marshal([]string{"sentence"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warp", store.OtypeTypesFile), typeNames, 0o644))

	writeFile(t, dir, store.KindWarp, store.OslotsCSRFile+".indptr",
		binfmt.Header{Kind: binfmt.KindCSRIndptr, DType: binfmt.DTypeU64, Rank: 1, Shape: 3, ItemSize: 8},
		u64Bytes(0, 2, 4))
	writeFile(t, dir, store.KindWarp, store.OslotsCSRFile+".data",
		binfmt.Header{Kind: binfmt.KindCSRData, DType: binfmt.DTypeU32, Rank: 1, Shape: 4, ItemSize: 4},
		u32Bytes(1, 2, 2, 3))

	s, err := store.Open(dir)
	require.NoError(t, err)
	return s
}

func TestBuildRankScenarioS3(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()
	ot, err := feature.LoadOtype(s)
	require.NoError(t, err)
	os_, err := feature.LoadOslots(s)
	require.NoError(t, err)

	rank, order := computed.BuildRank(ot, os_)

	require.Less(t, rank[4], rank[1])
	require.Less(t, rank[4], rank[5])

	// order is a permutation of [1,maxNode] and order[rank[n]] == n (property 3).
	require.Len(t, order, 5)
	seen := make(map[uint32]bool)
	for _, n := range order {
		require.False(t, seen[n], "duplicate node %d in order", n)
		seen[n] = true
		require.True(t, n >= 1 && n <= 5)
	}
	for node := uint32(1); node <= 5; node++ {
		require.Equal(t, node, order[rank[node]])
	}
}

func TestBuildBoundaryProperty5(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()
	ot, err := feature.LoadOtype(s)
	require.NoError(t, err)
	os_, err := feature.LoadOslots(s)
	require.NoError(t, err)
	rank, _ := computed.BuildRank(ot, os_)

	first, last := computed.BuildBoundary(ot, os_, rank)

	// slot 1: min(oslots) == 1 only for node 1 (itself) and node 4.
	require.ElementsMatch(t, []uint32{4, 1}, first.Row(0))
	// slot 2: max(oslots) == 2 for node 2 (itself) and node 4.
	require.ElementsMatch(t, []uint32{4, 2}, last.Row(1))
}

func TestBuildLevUpDownProperty4(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()
	ot, err := feature.LoadOtype(s)
	require.NoError(t, err)
	os_, err := feature.LoadOslots(s)
	require.NoError(t, err)
	rank, _ := computed.BuildRank(ot, os_)
	touching := computed.BuildTouching(ot, os_, rank)

	levUp, levDown := computed.BuildLevUpDown(ot, os_, touching, rank)

	// node 1 (slot 1) is embedded by node 4 ([1,2]).
	require.Contains(t, levUp.Row(0), uint32(4))
	for _, m := range levUp.Row(0) {
		require.True(t, len(os_.S(m)) > len(os_.S(1)))
		require.Less(t, rank[m], rank[uint32(1)])
	}
	require.Contains(t, levDown.Row(3), uint32(1)) // node 4's row (index 3) contains node 1
}

func TestBuildLevelsProperty6(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()
	ot, err := feature.LoadOtype(s)
	require.NoError(t, err)
	os_, err := feature.LoadOslots(s)
	require.NoError(t, err)

	levels := computed.BuildLevels(ot, os_)
	require.Len(t, levels, 2) // "word" (slot type) + "sentence"

	for _, lvl := range levels {
		for node := lvl.MinNode; node <= lvl.MaxNode; node++ {
			require.Equal(t, lvl.Name, ot.V(node))
		}
	}
}
