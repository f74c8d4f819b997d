package query_test

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
	"github.com/context-fabric/context-fabric/pkg/query"
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

func writeStringPool(t *testing.T, dir, name string, strs []string, idx []uint32) {
	t.Helper()
	var data []byte
	offsets := []uint64{0, 0} // id 0 is the empty string
	for _, s := range strs {
		data = append(data, s...)
		offsets = append(offsets, uint64(len(data)))
	}
	writeFile(t, dir, store.KindFeatures, name+".bytes",
		binfmt.Header{Kind: binfmt.KindPoolBytes, DType: binfmt.DTypeBytes, Rank: 1, Shape: uint64(len(data))},
		data)
	writeFile(t, dir, store.KindFeatures, name+".offsets",
		binfmt.Header{Kind: binfmt.KindPoolOffsets, DType: binfmt.DTypeU64, Rank: 1, Shape: uint64(len(offsets)), ItemSize: 8},
		u64Bytes(offsets...))
	if idx != nil {
		writeFile(t, dir, store.KindFeatures, name+".idx",
			binfmt.Header{Kind: binfmt.KindPoolIdx, DType: binfmt.DTypeU32, Rank: 1, Shape: uint64(len(idx)), ItemSize: 4},
			u32Bytes(idx...))
	}
}

// buildApi wires up scenario S1's mini corpus through the full
// store -> feature -> computed -> query stack and returns a ready Api.
func buildApi(t *testing.T) (*query.Api, func()) {
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

	writeStringPool(t, dir, "text", []string{"a", "b", "c"}, []uint32{1, 2, 3, feature.AbsentStringID, feature.AbsentStringID})

	s, err := store.Open(dir)
	require.NoError(t, err)

	ot, err := feature.LoadOtype(s)
	require.NoError(t, err)
	os_, err := feature.LoadOslots(s)
	require.NoError(t, err)
	text, err := feature.LoadStringNodeFeature(s, "text")
	require.NoError(t, err)

	rank, order := computed.BuildRank(ot, os_)
	first, last := computed.BuildBoundary(ot, os_, rank)
	touching := computed.BuildTouching(ot, os_, rank)
	levUp, levDown := computed.BuildLevUpDown(ot, os_, touching, rank)

	c := &query.Computed{
		Rank: rank, Order: order,
		LevUp: levUp, LevDown: levDown,
		BoundaryFirst: first, BoundaryLast: last, Touching: touching,
		Levels:   computed.BuildLevels(ot, os_),
		Sections: map[string]*computed.Sections{},
	}

	nodes := map[string]*feature.NodeFeature{"text": text}
	edges := map[string]*feature.EdgeFeature{}
	api := query.New(ot, os_, nodes, edges, c, store.OtextConfig{})
	return api, func() { s.Close() }
}

func TestScenarioS1LocalityAndText(t *testing.T) {
	api, closeFn := buildApi(t)
	defer closeFn()

	require.ElementsMatch(t, []uint32{4, 5}, api.L.U(2, ""))
	require.ElementsMatch(t, []uint32{1, 2}, api.L.D(4, ""))
	require.Equal(t, "a b", api.T.Text([]uint32{4}, ""))
}

func TestApiCFTFAlias(t *testing.T) {
	api, closeFn := buildApi(t)
	defer closeFn()

	require.Same(t, api, api.CF)
	require.Same(t, api, api.TF)
}

// TestSiblingsBoundaryNodes covers the first/last node of a type: the first
// node has no previous sibling and the last has no next sibling, and P/X
// must report that via their own ok value rather than the other's.
func TestSiblingsBoundaryNodes(t *testing.T) {
	api, closeFn := buildApi(t)
	defer closeFn()

	// Node 4 (oslots=[1,2]) ranks before node 5 (oslots=[2,3]): 4 is the
	// first "sentence" node, 5 is the last.
	prev, ok := api.L.P(4, "sentence")
	require.False(t, ok)
	require.Zero(t, prev)

	next, ok := api.L.X(4, "sentence")
	require.True(t, ok)
	require.Equal(t, uint32(5), next)

	prev, ok = api.L.P(5, "sentence")
	require.True(t, ok)
	require.Equal(t, uint32(4), prev)

	next, ok = api.L.X(5, "sentence")
	require.False(t, ok)
	require.Zero(t, next)
}

func TestWalkIsRestartable(t *testing.T) {
	api, closeFn := buildApi(t)
	defer closeFn()

	w1 := api.N.Walk()
	var first []uint32
	for w1.Next() {
		first = append(first, w1.Node())
	}

	w2 := api.N.Walk()
	var second []uint32
	for w2.Next() {
		second = append(second, w2.Node())
	}
	require.Equal(t, first, second)
	require.Len(t, first, 5)
}
