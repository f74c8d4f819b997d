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

// Package compiler implements the textual-corpus-to-store compiler
// described in spec §4.4: discover and validate otype/oslots/otext,
// compile every declared feature in parallel, and atomically publish the
// result as a new store version.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/gofrs/flock"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cflog "github.com/context-fabric/context-fabric/internal/log"
	"github.com/context-fabric/context-fabric/internal/metrics"
	"github.com/context-fabric/context-fabric/pkg/store"
)

// Options configures one Compile call. All fields are optional; zero values
// fall back to sensible defaults (info-level logging to stderr, no metrics,
// GOMAXPROCS(0) parallelism).
type Options struct {
	Silent      cflog.Silent
	Metrics     *metrics.Collectors
	Parallelism int // default runtime.GOMAXPROCS(0)
}

// reservedFileNames are the source-directory entries that aren't a feature
// file and are compiled through a dedicated path instead of the generic
// node/edge dispatch.
var reservedFileNames = map[string]bool{
	otypeFileName: true,
	oslotsFileName: true,
	otextFileName: true,
}

// Compile reads the textual corpus in srcDir and atomically publishes a new
// store version at filepath.Join(storeRoot, version) (spec §4.4 step 5:
// compile into "<store>/<version>.tmp/", fsync, then rename).
func Compile(ctx context.Context, srcDir, storeRoot, version string, opts Options) (err error) {
	logger := cflog.WithStore(cflog.New(cflog.Config{Silent: opts.Silent}), filepath.Join(storeRoot, version))

	start := time.Now()
	defer func() {
		if opts.Metrics == nil {
			return
		}
		result := metrics.ResultOK
		if err != nil {
			result = metrics.ResultFatal
		}
		opts.Metrics.ObserveCompile(time.Since(start).Seconds(), result)
	}()

	finalDir := filepath.Join(storeRoot, version)
	tmpDir := finalDir + ".tmp"
	lockPath := tmpDir + ".lock"

	if err := os.MkdirAll(storeRoot, 0o755); err != nil {
		return store.IoErrorf(storeRoot, err)
	}

	// Single-writer guard: two concurrent compiles of the same version must
	// not interleave writes into the same .tmp directory.
	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, 100*time.Millisecond)
	if err != nil {
		return store.IoErrorf(lockPath, err)
	}
	if !locked {
		return store.InvariantViolationf("another compile holds the lock at %s", lockPath)
	}
	defer fl.Unlock()

	if err := os.RemoveAll(tmpDir); err != nil {
		return store.IoErrorf(tmpDir, err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return store.IoErrorf(tmpDir, err)
	}

	meta, err := readCorpusMeta(srcDir)
	if err != nil {
		return err
	}
	logger.Info("discovered corpus meta", zap.Uint32("maxSlot", meta.maxSlot), zap.Uint32("maxNode", meta.maxNode))

	otypeRes, err := compileOtype(srcDir, meta)
	if err != nil {
		return err
	}
	if err := writeOtype(tmpDir, otypeRes); err != nil {
		return err
	}

	oslotsCSR, err := compileOslots(srcDir, meta)
	if err != nil {
		return err
	}
	if err := writeOslots(tmpDir, oslotsCSR); err != nil {
		return err
	}

	otextCfg, err := compileOtext(srcDir)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return store.IoErrorf(srcDir, err)
	}

	var nodeMeta, edgeMeta []store.FeatureMeta
	nodeMeta, edgeMeta, err = compileFeatures(ctx, srcDir, tmpDir, entries, meta, logger, opts)
	if err != nil {
		return err
	}

	m := store.Meta{
		Version:  store.FormatVersion,
		MaxSlot:  meta.maxSlot,
		MaxNode:  meta.maxNode,
		SlotType: meta.slotType,
		Otext:    otextCfg,
	}
	m.Features.Node = nodeMeta
	m.Features.Edge = edgeMeta

	metaPath := filepath.Join(tmpDir, store.MetaFileName)
	mf, err := os.Create(metaPath)
	if err != nil {
		return store.IoErrorf(metaPath, err)
	}
	if err := store.WriteMeta(mf, m); err != nil {
		mf.Close()
		return store.IoErrorf(metaPath, err)
	}
	if err := mf.Sync(); err != nil {
		mf.Close()
		return store.IoErrorf(metaPath, err)
	}
	if err := mf.Close(); err != nil {
		return store.IoErrorf(metaPath, err)
	}

	if err := fsyncDir(tmpDir); err != nil {
		return err
	}

	if err := os.RemoveAll(finalDir); err != nil {
		return store.IoErrorf(finalDir, err)
	}
	if err := os.Rename(tmpDir, finalDir); err != nil {
		return store.IoErrorf(finalDir, err)
	}
	if err := fsyncDir(storeRoot); err != nil {
		return err
	}

	logger.Info("compile complete", zap.String("dir", finalDir))
	return nil
}

// readCorpusMeta reads just the otype file's preamble to learn maxSlot,
// maxNode, and slotType (spec §4.4 step 1); compileOtype re-opens the same
// file afterwards to validate and compile its body.
func readCorpusMeta(srcDir string) (corpusMeta, error) {
	path := filepath.Join(srcDir, otypeFileName)
	f, err := os.Open(path)
	if err != nil {
		return corpusMeta{}, store.NotPresentf("%s", path)
	}
	defer f.Close()
	sf, err := readSourceFile(path, f)
	if err != nil {
		return corpusMeta{}, err
	}
	return parseCorpusMeta(sf)
}

// compileFeatures runs every non-reserved source file in srcDir through the
// node/edge compiler in parallel (spec §4.4 step 4: "work-stealing across
// features; no ordering dependence between files"), bounded to GOMAXPROCS
// workers. Results are sorted by feature name before return so meta.json's
// feature lists are deterministic regardless of filesystem iteration order
// (spec §4.4 "Determinism").
func compileFeatures(ctx context.Context, srcDir, tmpDir string, entries []os.DirEntry, meta corpusMeta, logger *zap.Logger, opts Options) ([]store.FeatureMeta, []store.FeatureMeta, error) {
	limit := opts.Parallelism
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(limit)

	type result struct {
		isEdge bool
		fm     store.FeatureMeta
	}
	results := make([]result, len(entries))
	present := make([]bool, len(entries))

	for i, ent := range entries {
		if ent.IsDir() || reservedFileNames[ent.Name()] {
			continue
		}
		i, ent := i, ent
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			path := filepath.Join(srcDir, ent.Name())
			f, err := os.Open(path)
			if err != nil {
				return store.IoErrorf(path, err)
			}
			defer f.Close()

			sf, err := readSourceFile(path, f)
			if err != nil {
				return err
			}

			flog := cflog.WithFeature(logger, sf.preamble["name"])
			_, isNode := sf.preamble["node"]
			_, isEdge := sf.preamble["edge"]
			switch {
			case isNode == isEdge:
				return store.Malformedf(path, 0, "exactly one of @node or @edge must be set")
			case isNode:
				flog.Debug("compiling node feature")
				nf, err := compileNodeFeature(path, sf, meta.maxNode)
				if err != nil {
					return err
				}
				if err := writeNodeFeature(tmpDir, nf); err != nil {
					return err
				}
				present[i] = true
				results[i] = result{fm: store.FeatureMeta{
					Name: nf.name, ValueType: valueTypeOf(nf.isString), SourceFile: ent.Name(),
				}}
			case isEdge:
				flog.Debug("compiling edge feature")
				ef, err := compileEdgeFeature(path, sf, meta.maxNode)
				if err != nil {
					return err
				}
				if err := writeEdgeFeature(tmpDir, ef); err != nil {
					return err
				}
				present[i] = true
				results[i] = result{isEdge: true, fm: store.FeatureMeta{
					Name: ef.name, ValueType: valueTypeOf(ef.isString), HasValues: ef.hasValues, SourceFile: ent.Name(),
				}}
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var nodeMeta, edgeMeta []store.FeatureMeta
	for i, ok := range present {
		if !ok {
			continue
		}
		r := results[i]
		if err := writeFeatureMetaSidecar(tmpDir, r.isEdge, r.fm); err != nil {
			return nil, nil, err
		}
		if r.isEdge {
			edgeMeta = append(edgeMeta, r.fm)
		} else {
			nodeMeta = append(nodeMeta, r.fm)
		}
	}
	sort.Slice(nodeMeta, func(i, j int) bool { return nodeMeta[i].Name < nodeMeta[j].Name })
	sort.Slice(edgeMeta, func(i, j int) bool { return edgeMeta[i].Name < edgeMeta[j].Name })
	return nodeMeta, edgeMeta, nil
}

func valueTypeOf(isString bool) string {
	if isString {
		return "str"
	}
	return "int"
}

func writeFeatureMetaSidecar(dir string, isEdge bool, fm store.FeatureMeta) error {
	kind := store.KindFeatures
	if isEdge {
		kind = store.KindEdges
	}
	sub := filepath.Join(dir, string(kind))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return store.IoErrorf(sub, err)
	}
	path := filepath.Join(sub, fm.Name+"_meta.json")
	b, err := json.MarshalIndent(fm, "", "  ")
	if err != nil {
		return store.IoErrorf(path, err)
	}
	return store.IoErrorf(path, os.WriteFile(path, b, 0o644))
}

// fsyncDir fsyncs a directory's own inode so its entries (e.g. a rename)
// survive a crash, not just the files within it.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return store.IoErrorf(dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return store.IoErrorf(dir, fmt.Errorf("fsync directory: %w", err))
	}
	return nil
}
