package feature_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/context-fabric/context-fabric/pkg/binfmt"
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
		b[i*4] = byte(v)
		b[i*4+1] = byte(v >> 8)
		b[i*4+2] = byte(v >> 16)
		b[i*4+3] = byte(v >> 24)
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

func i64Bytes(vals ...int64) []byte {
	u := make([]uint64, len(vals))
	for i, v := range vals {
		u[i] = uint64(v)
	}
	return u64Bytes(u...)
}

// buildMiniCorpus writes the scenario S1/S2/S4 fixture store and returns the
// opened MmapStore (caller must Close).
func buildMiniCorpus(t *testing.T) *store.MmapStore {
	t.Helper()
	dir := t.TempDir()

	m := store.Meta{Version: store.FormatVersion, MaxSlot: 3, MaxNode: 5, SlotType: "word"}
	f, err := os.Create(filepath.Join(dir, store.MetaFileName))
	require.NoError(t, err)
	require.NoError(t, store.WriteMeta(f, m))
	require.NoError(t, f.Close())

	// warp/otype: nodes 4,5 both type index 0 ("sentence")
	writeFile(t, dir, store.KindWarp, store.OtypeArrayFile,
		binfmt.Header{Kind: binfmt.KindArray, DType: binfmt.DTypeU32, Rank: 1, Shape: 2, ItemSize: 4},
		u32Bytes(0, 0))
	typeNames, err := json.Marshal([]string{"sentence"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warp", store.OtypeTypesFile), typeNames, 0o644))

	// warp/oslots: node4(row0)=[1,2], node5(row1)=[2,3]
	writeFile(t, dir, store.KindWarp, store.OslotsCSRFile+".indptr",
		binfmt.Header{Kind: binfmt.KindCSRIndptr, DType: binfmt.DTypeU64, Rank: 1, Shape: 3, ItemSize: 8},
		u64Bytes(0, 2, 4))
	writeFile(t, dir, store.KindWarp, store.OslotsCSRFile+".data",
		binfmt.Header{Kind: binfmt.KindCSRData, DType: binfmt.DTypeU32, Rank: 1, Shape: 4, ItemSize: 4},
		u32Bytes(1, 2, 2, 3))

	// features/text: string feature over slots only (1->a, 2->b, 3->c), absent on 4,5
	writeStringPool(t, dir, "text", []string{"a", "b", "c"}, []uint32{1, 2, 3, feature.AbsentStringID, feature.AbsentStringID})

	// features/gloss: 1->"" present, 2 absent, rest absent
	writeStringPool(t, dir, "gloss", nil, []uint32{0, feature.AbsentStringID, feature.AbsentStringID, feature.AbsentStringID, feature.AbsentStringID})

	// edges/parent: (2,4,"head"), (3,4,"mod")
	writeFile(t, dir, store.KindEdges, "parent.indptr",
		binfmt.Header{Kind: binfmt.KindCSRIndptr, DType: binfmt.DTypeU64, Rank: 1, Shape: 6, ItemSize: 8},
		u64Bytes(0, 0, 1, 2, 2, 2))
	writeFile(t, dir, store.KindEdges, "parent.data",
		binfmt.Header{Kind: binfmt.KindCSRData, DType: binfmt.DTypeU32, Rank: 1, Shape: 2, ItemSize: 4},
		u32Bytes(4, 4))
	writeStringPool(t, dir, "parent", []string{"head", "mod"}, []uint32{feature.AbsentStringID, feature.AbsentStringID, feature.AbsentStringID, feature.AbsentStringID, feature.AbsentStringID})
	writeFile(t, dir, store.KindEdges, "parent.values",
		binfmt.Header{Kind: binfmt.KindCSRValues, DType: binfmt.DTypeU32, Rank: 1, Shape: 2, ItemSize: 4},
		u32Bytes(1, 2)) // "head" interned as id 1, "mod" as id 2

	writeFile(t, dir, store.KindEdges, "parent_inv.indptr",
		binfmt.Header{Kind: binfmt.KindCSRIndptr, DType: binfmt.DTypeU64, Rank: 1, Shape: 6, ItemSize: 8},
		u64Bytes(0, 0, 0, 0, 2, 2))
	writeFile(t, dir, store.KindEdges, "parent_inv.data",
		binfmt.Header{Kind: binfmt.KindCSRData, DType: binfmt.DTypeU32, Rank: 1, Shape: 2, ItemSize: 4},
		u32Bytes(2, 3))
	writeFile(t, dir, store.KindEdges, "parent_inv.values",
		binfmt.Header{Kind: binfmt.KindCSRValues, DType: binfmt.DTypeU32, Rank: 1, Shape: 2, ItemSize: 4},
		u32Bytes(1, 2))

	s, err := store.Open(dir)
	require.NoError(t, err)
	return s
}

// writeStringPool writes a features/<name>.{bytes,offsets[,idx]} triple;
// strs get ids 1.. (id 0 is the empty string). When idx is nil only
// bytes/offsets are written. OpenStringPool needs the idx file, so the
// edges/parent pool is written with an all-absent idx, as the compiler does.
func writeStringPool(t *testing.T, dir, name string, strs []string, idx []uint32) {
	t.Helper()
	var data []byte
	offsets := []uint64{0, 0}
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

func TestOtypeAndOslotsScenarioS1(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()

	ot, err := feature.LoadOtype(s)
	require.NoError(t, err)
	require.Equal(t, "sentence", ot.V(4))
	require.Equal(t, "sentence", ot.V(5))
	require.Equal(t, "word", ot.V(1))
	min, max, ok := ot.SInterval("sentence")
	require.True(t, ok)
	require.Equal(t, uint32(4), min)
	require.Equal(t, uint32(5), max)

	os_, err := feature.LoadOslots(s)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, os_.S(4))
	require.Equal(t, []uint32{2, 3}, os_.S(5))
	require.Equal(t, []uint32{2}, os_.S(2)) // slot is its own singleton row

	text, err := feature.LoadStringNodeFeature(s, "text")
	require.NoError(t, err)
	v, ok := text.VString(1)
	require.True(t, ok)
	require.Equal(t, "a", v)
	_, ok = text.VString(4)
	require.False(t, ok)
}

func TestNodeFeatureAbsentVsEmptyScenarioS4(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()

	gloss, err := feature.LoadStringNodeFeature(s, "gloss")
	require.NoError(t, err)

	v, ok := gloss.VString(1)
	require.True(t, ok)
	require.Equal(t, "", v)

	_, ok = gloss.VString(2)
	require.False(t, ok)
}

func TestEdgeFeatureValuedScenarioS2(t *testing.T) {
	s := buildMiniCorpus(t)
	defer s.Close()

	parent, err := feature.LoadStringEdgeFeature(s, "parent")
	require.NoError(t, err)

	targets, vals := parent.FString(2)
	require.Equal(t, []uint32{4}, targets)
	require.Equal(t, []string{"head"}, vals)

	sources, vals := parent.TString(4)
	require.Equal(t, []uint32{2, 3}, sources)
	require.Equal(t, []string{"head", "mod"}, vals)
}
