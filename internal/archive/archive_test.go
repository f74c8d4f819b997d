package archive_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/context-fabric/context-fabric/internal/archive"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, contents := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"warp/otype":        "otype-bytes",
		"features/text.data": "text-bytes",
		"meta.json":          `{"maxSlot":3}`,
	})

	var buf bytes.Buffer
	require.NoError(t, archive.Pack(src, &buf))

	dest := t.TempDir()
	require.NoError(t, archive.Unpack(bytes.NewReader(buf.Bytes()), dest))

	for rel, want := range map[string]string{
		"warp/otype":         "otype-bytes",
		"features/text.data": "text-bytes",
		"meta.json":          `{"maxSlot":3}`,
	} {
		got, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err)
		require.Equal(t, want, string(got))
	}
}

func TestPackIsDeterministic(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{
		"a": "1",
		"b": "2",
		"sub/c": "3",
	})

	var buf1, buf2 bytes.Buffer
	require.NoError(t, archive.Pack(src, &buf1))
	require.NoError(t, archive.Pack(src, &buf2))

	require.Equal(t, buf1.Bytes(), buf2.Bytes())
}
