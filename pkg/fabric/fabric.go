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

// Package fabric implements the façade described in spec §4.8: it locates
// a compiled store (or compiles one from source), loads the requested
// feature subset, and binds the result into a *query.Api handle.
package fabric

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	cflog "github.com/context-fabric/context-fabric/internal/log"
	"github.com/context-fabric/context-fabric/internal/metrics"
	"github.com/context-fabric/context-fabric/pkg/compiler"
	"github.com/context-fabric/context-fabric/pkg/computed"
	"github.com/context-fabric/context-fabric/pkg/feature"
	"github.com/context-fabric/context-fabric/pkg/query"
	"github.com/context-fabric/context-fabric/pkg/store"
)

// storeDirName is the fixed subdirectory holding compiled store versions
// under locations, resolving spec §4.8's "<locations>/<store_dir>/<version>"
// to a concrete name. "tf" follows the Text-Fabric-shaped original's own
// ".tf" cache directory convention (SPEC_FULL §3.1).
const storeDirName = "tf"

// sourceDirName is the fixed subdirectory under locations holding the
// textual corpus pkg/compiler reads.
const sourceDirName = "source"

// Options configures one Fabric (spec §6 "Configuration recognized on
// load").
type Options struct {
	Silent  cflog.Silent
	Metrics *metrics.Collectors
	// Strict, when true, turns a requested-but-absent feature into a fatal
	// error instead of a logged warning (spec §6 "strict: bool").
	Strict      bool
	Parallelism int // forwarded to compiler.Options.Parallelism
}

// Manifest is explore()'s result (SPEC_FULL §3.1): the feature names
// available in the store, split by domain, before any bulk data is loaded.
type Manifest struct {
	Nodes []string
	Edges []string
}

// Fabric binds a location (source and/or compiled store) to a version. It
// holds the open store and the computed indices, which are independent of
// which features have been loaded and so are built once and reused across
// Load/LoadAll calls.
type Fabric struct {
	store  *store.MmapStore
	logger *zap.Logger
	opts   Options

	otype  *feature.Otype
	oslots *feature.Oslots

	computed *query.Computed
	current  *query.Api
}

// Open resolves locations/tf/version: if a compatible store already exists
// there it is opened directly (spec §4.8 step 1); otherwise locations/source
// is compiled into it first (step 2), and either way the otype/oslots views
// are loaded eagerly since every namespace depends on them (step 3).
func Open(ctx context.Context, locations, version string, opts Options) (*Fabric, error) {
	storeRoot := filepath.Join(locations, storeDirName)
	dir := filepath.Join(storeRoot, version)
	logger := cflog.WithStore(cflog.New(cflog.Config{Silent: opts.Silent}), dir)

	start := time.Now()
	s, source, err := openOrCompile(ctx, locations, storeRoot, dir, version, opts, logger)
	if opts.Metrics != nil {
		opts.Metrics.ObserveLoad(time.Since(start).Seconds(), source)
	}
	if err != nil {
		return nil, err
	}

	ot, err := feature.LoadOtype(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	os_, err := feature.LoadOslots(s)
	if err != nil {
		s.Close()
		return nil, err
	}
	if opts.Metrics != nil {
		opts.Metrics.SetMappedBytes(s.MappedBytes())
	}

	return &Fabric{
		store:  s,
		logger: logger,
		opts:   opts,
		otype:  ot,
		oslots: os_,
	}, nil
}

// openOrCompile implements spec §4.8 steps 1-2.
func openOrCompile(ctx context.Context, locations, storeRoot, dir, version string, opts Options, logger *zap.Logger) (*store.MmapStore, metrics.Source, error) {
	s, err := store.Open(dir)
	if err == nil {
		return s, metrics.SourceStore, nil
	}
	if !errors.Is(err, store.ErrNotPresent) && !errors.Is(err, store.ErrSchemaMismatch) {
		return nil, metrics.SourceStore, err
	}

	logger.Info("no compatible store; compiling from source", zap.Error(err))
	srcDir := filepath.Join(locations, sourceDirName)
	if cerr := compiler.Compile(ctx, srcDir, storeRoot, version, compiler.Options{
		Silent:      opts.Silent,
		Metrics:     opts.Metrics,
		Parallelism: opts.Parallelism,
	}); cerr != nil {
		return nil, metrics.SourceCompile, cerr
	}

	s, err = store.Open(dir)
	return s, metrics.SourceCompile, err
}

// Close unmaps the underlying store. The Fabric and every Api it produced
// must not be used afterward.
func (fb *Fabric) Close() error { return fb.store.Close() }

// Store exposes the underlying MmapStore for callers that need direct
// access to meta.json or raw arrays (e.g. diagnostics, §8 S5/S6 tests).
func (fb *Fabric) Store() *store.MmapStore { return fb.store }

// Explore lists every declared feature without loading bulk data (spec
// §4.8 "explore() lists available features without loading bulk data"),
// separating the always-present structural features (otype, oslots) from
// the generic node/edge features declared in meta.json.
func (fb *Fabric) Explore() Manifest {
	nodes, edges := fb.store.ListFeatureFiles()
	m := Manifest{
		Nodes: append([]string{"otype"}, nodes...),
		Edges: append([]string{"oslots"}, edges...),
	}
	sort.Strings(m.Nodes)
	sort.Strings(m.Edges)
	return m
}

// LoadAll loads every declared feature and returns a fresh Api (spec §4.8
// "loadAll() -> Api").
func (fb *Fabric) LoadAll() (*query.Api, error) {
	nodes, edges := fb.store.ListFeatureFiles()
	names := make([]string, 0, len(nodes)+len(edges))
	names = append(names, nodes...)
	names = append(names, edges...)
	return fb.Load(names, false)
}

// Load binds the named features into an Api (spec §4.8 "load(features) ->
// Api"). When add is true, names are wired into the Api returned by the
// most recent Load/LoadAll call on this Fabric instead of building a fresh
// one (SPEC_FULL §3.1 "Partial/incremental load with add=true").
func (fb *Fabric) Load(names []string, add bool) (*query.Api, error) {
	if add {
		if fb.current == nil {
			return nil, store.InvariantViolationf("Load with add=true requires a prior Load/LoadAll call")
		}
		if err := fb.wireFeatures(fb.current, names); err != nil {
			return nil, err
		}
		return fb.current, nil
	}

	if err := fb.ensureComputed(); err != nil {
		return nil, err
	}

	nodes := map[string]*feature.NodeFeature{}
	edges := map[string]*feature.EdgeFeature{}
	api := query.New(fb.otype, fb.oslots, nodes, edges, fb.computed, fb.store.Meta().Otext)

	if err := fb.wireFeatures(api, names); err != nil {
		return nil, err
	}
	fb.current = api
	return api, nil
}

// wireFeatures loads each named feature from the store (skipping otype and
// oslots, already bound at Open time) and adds it to api, choosing the
// loader by the feature's declared kind in meta.json.
func (fb *Fabric) wireFeatures(api *query.Api, names []string) error {
	meta := fb.store.Meta()
	nodeMeta := make(map[string]store.FeatureMeta, len(meta.Features.Node))
	for _, fm := range meta.Features.Node {
		nodeMeta[fm.Name] = fm
	}
	edgeMeta := make(map[string]store.FeatureMeta, len(meta.Features.Edge))
	for _, fm := range meta.Features.Edge {
		edgeMeta[fm.Name] = fm
	}

	for _, name := range names {
		switch name {
		case "otype", "oslots":
			continue
		}
		if _, ok := api.F.Get(name); ok {
			continue
		}
		if _, ok := api.E.Get(name); ok {
			continue
		}

		if fm, ok := nodeMeta[name]; ok {
			nf, err := fb.loadNodeFeature(fm)
			if err != nil {
				return err
			}
			api.AddNodeFeature(name, nf)
			continue
		}
		if fm, ok := edgeMeta[name]; ok {
			ef, err := fb.loadEdgeFeature(fm)
			if err != nil {
				return err
			}
			api.AddEdgeFeature(name, ef)
			continue
		}

		if fb.opts.Strict {
			return store.NotPresentf("requested feature %q not found in store", name)
		}
		fb.logger.Warn("requested feature not found; skipping", zap.String("feature", name))
	}
	return nil
}

func (fb *Fabric) loadNodeFeature(fm store.FeatureMeta) (*feature.NodeFeature, error) {
	if fm.ValueType == "str" {
		return feature.LoadStringNodeFeature(fb.store, fm.Name)
	}
	return feature.LoadIntNodeFeature(fb.store, fm.Name)
}

func (fb *Fabric) loadEdgeFeature(fm store.FeatureMeta) (*feature.EdgeFeature, error) {
	switch {
	case !fm.HasValues:
		return feature.LoadUnvaluedEdgeFeature(fb.store, fm.Name)
	case fm.ValueType == "str":
		return feature.LoadStringEdgeFeature(fb.store, fm.Name)
	default:
		return feature.LoadIntEdgeFeature(fb.store, fm.Name)
	}
}

// ensureComputed builds every index in query.Computed once per Fabric,
// since none of rank/order/levUp/levDown/boundary/touching/levels/sections
// depend on which features a caller happens to request (spec §4.6, §4.8
// step 3 "build computed indices not yet present on disk").
func (fb *Fabric) ensureComputed() error {
	if fb.computed != nil {
		return nil
	}

	rank, order := computed.BuildRank(fb.otype, fb.oslots)
	touching := computed.BuildTouching(fb.otype, fb.oslots, rank)
	levUp, levDown := computed.BuildLevUpDown(fb.otype, fb.oslots, touching, rank)
	first, last := computed.BuildBoundary(fb.otype, fb.oslots, rank)
	levels := computed.BuildLevels(fb.otype, fb.oslots)

	otext := fb.store.Meta().Otext
	sections := make(map[string]*computed.Sections, len(otext.SectionFeatures))
	for lang, names := range otext.SectionFeatures {
		feats := make([]*feature.NodeFeature, 0, len(names))
		for _, n := range names {
			nf, err := fb.lookupOrLoadNodeFeature(n)
			if err != nil {
				return fmt.Errorf("loading section feature %q for lang %q: %w", n, lang, err)
			}
			feats = append(feats, nf)
		}
		sections[lang] = computed.BuildSections(lang, otext.SectionTypes, feats, fb.otype, fb.oslots)
	}

	fb.computed = &query.Computed{
		Rank:          rank,
		Order:         order,
		LevUp:         levUp,
		LevDown:       levDown,
		BoundaryFirst: first,
		BoundaryLast:  last,
		Touching:      touching,
		Levels:        levels,
		Sections:      sections,
	}
	return nil
}

// lookupOrLoadNodeFeature loads a node feature by name directly from the
// store, independent of any Api's already-wired feature set — used while
// building Sections, which must see otext's section features regardless of
// what the caller asked Load to bind.
func (fb *Fabric) lookupOrLoadNodeFeature(name string) (*feature.NodeFeature, error) {
	meta := fb.store.Meta()
	for _, fm := range meta.Features.Node {
		if fm.Name == name {
			return fb.loadNodeFeature(fm)
		}
	}
	return nil, store.NotPresentf("section feature %q not declared", name)
}
