package stringpool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/context-fabric/context-fabric/pkg/binfmt"
)

func TestBuilderInternDedup(t *testing.T) {
	b := NewBuilder()
	require.Equal(t, EmptyID, b.Intern(""))

	a1 := b.Intern("alpha")
	b1 := b.Intern("beta")
	a2 := b.Intern("alpha")
	require.Equal(t, a1, a2)
	require.NotEqual(t, a1, b1)
	require.Equal(t, 3, b.Len()) // "", alpha, beta
}

func TestBuilderToPoolRoundTrip(t *testing.T) {
	b := NewBuilder()
	ids := map[string]uint32{
		"":      b.Intern(""),
		"one":   b.Intern("one"),
		"two":   b.Intern("two"),
		"three": b.Intern("three"),
		"one-2": b.Intern("one"),
	}
	require.Equal(t, ids["one"], ids["one-2"])

	var bytesBuf, offsetsBuf bytes.Buffer
	require.NoError(t, b.WriteBytes(&bytesBuf))
	require.NoError(t, b.WriteOffsets(&offsetsBuf))

	bh, err := binfmt.Read(&bytesBuf)
	require.NoError(t, err)
	require.Equal(t, binfmt.KindPoolBytes, bh.Kind)

	oh, err := binfmt.Read(&offsetsBuf)
	require.NoError(t, err)
	require.Equal(t, binfmt.KindPoolOffsets, oh.Kind)

	data := bytesBuf.Bytes()
	offsets := binfmt.Uint64View(offsetsBuf.Bytes())

	pool := NewPool(data, offsets)
	require.Equal(t, 4, pool.Len())

	for s, id := range ids {
		if s == "one-2" {
			continue
		}
		got, ok := pool.LookupString(id)
		require.True(t, ok)
		require.Equal(t, s, got)
	}
}

func TestPoolAbsentVsEmpty(t *testing.T) {
	b := NewBuilder()
	emptyID := b.Intern("")
	aID := b.Intern("a")

	var bytesBuf, offsetsBuf bytes.Buffer
	require.NoError(t, b.WriteBytes(&bytesBuf))
	require.NoError(t, b.WriteOffsets(&offsetsBuf))
	bh, _ := binfmt.Read(&bytesBuf)
	_ = bh
	oh, _ := binfmt.Read(&offsetsBuf)
	_ = oh

	pool := NewPool(bytesBuf.Bytes(), binfmt.Uint64View(offsetsBuf.Bytes()))

	s, ok := pool.LookupString(emptyID)
	require.True(t, ok)
	require.Equal(t, "", s)

	s, ok = pool.LookupString(aID)
	require.True(t, ok)
	require.Equal(t, "a", s)

	_, ok = pool.Lookup(999)
	require.False(t, ok)
}
