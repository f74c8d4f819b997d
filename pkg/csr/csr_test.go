package csr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderRows(t *testing.T) {
	b := NewBuilder()
	b.AddRow([]uint32{1, 2})
	b.AddRow(nil)
	b.AddRow([]uint32{3})
	got := b.Build()

	require.Equal(t, 3, got.Len())
	require.Equal(t, []uint32{1, 2}, got.Row(0))
	require.Empty(t, got.Row(1))
	require.Equal(t, []uint32{3}, got.Row(2))
	require.Equal(t, 3, got.TotalEntries())
	require.Equal(t, uint64(0), got.Indptr[0])
	require.Equal(t, got.Indptr[len(got.Indptr)-1], uint64(len(got.Data)))
}

func TestValuedBuilderAlignment(t *testing.T) {
	b := NewValuedBuilder[string]()
	b.AddRow([]uint32{4, 5}, []string{"head", "mod"})
	got := b.Build()

	require.Equal(t, []uint32{4, 5}, got.Row(0))
	require.Equal(t, []string{"head", "mod"}, got.RowValues(0))
}

func TestEdgeBuilderSortsByDst(t *testing.T) {
	b := NewEdgeBuilder[int]()
	b.Add(2, 5, 1)
	b.Add(2, 4, 2)
	b.Add(3, 4, 3)
	fwd := b.Build(4) // rows 0..3

	require.Equal(t, []uint32{4, 5}, fwd.Row(2))
	require.Equal(t, []int{2, 1}, fwd.RowValues(2))
	require.Equal(t, []uint32{4}, fwd.Row(3))
	require.Empty(t, fwd.Row(0))
	require.Empty(t, fwd.Row(1))
}

func TestEdgeBuilderReplaceOnDuplicateKey(t *testing.T) {
	b := NewEdgeBuilder[int]()
	b.Add(1, 2, 10)
	b.Add(1, 2, 20)
	require.Equal(t, 1, b.Len())
	fwd := b.Build(3)
	require.Equal(t, []int{20}, fwd.RowValues(1))
}

func TestInvertIsExactTranspose(t *testing.T) {
	b := NewEdgeBuilder[string]()
	b.Add(2, 4, "head")
	b.Add(3, 4, "mod")
	fwd := b.Build(5) // rows 0..4

	inv := Invert(fwd, 5)
	require.Equal(t, []uint32{2, 3}, inv.Row(4))
	require.Equal(t, []string{"head", "mod"}, inv.RowValues(4))
	require.Empty(t, inv.Row(2))
}
