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

// Package archive packs a compiled store directory into a single
// deterministic tar+zstd stream for distribution (SPEC_FULL §4.11) and
// unpacks it back to a directory fabric.Open can mmap directly. It never
// touches the bulk data path: the extracted files are byte-identical to
// what the compiler wrote.
package archive

import (
	"archive/tar"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// deterministicTime is stamped on every tar entry in place of the file's
// real mtime, so Pack's output depends only on file contents and names.
var deterministicTime = time.Unix(0, 0).UTC()

// Pack streams dir's contents as a tar+zstd archive to w. Files are visited
// in sorted path order and written with zeroed mtimes/uids/gids so that
// repeated packs of an unchanged store directory are byte-identical,
// mirroring the compiler's own determinism guarantee (spec §8 property 9).
func Pack(dir string, w io.Writer) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "archive: open zstd writer")
	}
	defer zw.Close()

	tw := tar.NewWriter(zw)
	defer tw.Close()

	var paths []string
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dir {
			return nil
		}
		paths = append(paths, path)
		return nil
	}); err != nil {
		return errors.Wrapf(err, "archive: walk %s", dir)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := writeEntry(tw, dir, path); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return errors.Wrap(err, "archive: close tar writer")
	}
	return errors.Wrap(zw.Close(), "archive: close zstd writer")
}

func writeEntry(tw *tar.Writer, root, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return errors.Wrapf(err, "archive: stat %s", path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return errors.Wrapf(err, "archive: relativize %s", path)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return errors.Wrapf(err, "archive: header for %s", rel)
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.ModTime = deterministicTime
	hdr.AccessTime = deterministicTime
	hdr.ChangeTime = deterministicTime
	hdr.Uid, hdr.Gid = 0, 0
	hdr.Uname, hdr.Gname = "", ""

	if info.IsDir() {
		hdr.Name += "/"
		return tw.WriteHeader(hdr)
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "archive: write header for %s", rel)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "archive: open %s", rel)
	}
	defer f.Close()
	if _, err := io.Copy(tw, f); err != nil {
		return errors.Wrapf(err, "archive: write contents of %s", rel)
	}
	return nil
}

// Unpack extracts a tar+zstd stream produced by Pack into destDir, which
// must not already exist or must be empty; the caller then opens destDir
// normally via fabric.Open or store.Open.
func Unpack(r io.Reader, destDir string) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return errors.Wrap(err, "archive: open zstd reader")
	}
	defer zr.Close()

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "archive: read tar entry")
		}
		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name))
		if err := extractEntry(tr, hdr, target); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, target string) error {
	switch hdr.Typeflag {
	case tar.TypeDir:
		return errors.Wrapf(os.MkdirAll(target, 0o755), "archive: mkdir %s", target)
	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrapf(err, "archive: mkdir parent of %s", target)
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode))
		if err != nil {
			return errors.Wrapf(err, "archive: create %s", target)
		}
		defer f.Close()
		if _, err := io.Copy(f, tr); err != nil {
			return errors.Wrapf(err, "archive: write %s", target)
		}
		return nil
	default:
		return errors.Errorf("archive: unsupported tar entry type %d for %s", hdr.Typeflag, target)
	}
}
