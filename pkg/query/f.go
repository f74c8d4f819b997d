package query

import "github.com/context-fabric/context-fabric/pkg/feature"

// F is the node-feature namespace (spec §4.7): F[name] dispatches to the
// underlying NodeFeature, with Otype/Oslots exposed as direct typed
// accessors per the spec §9 design note on well-known features.
type F struct {
	otype  *feature.Otype
	oslots *feature.Oslots
	nodes  map[string]*feature.NodeFeature
}

// NewF builds the F namespace from already-loaded views.
func NewF(otype *feature.Otype, oslots *feature.Oslots, nodes map[string]*feature.NodeFeature) *F {
	return &F{otype: otype, oslots: oslots, nodes: nodes}
}

// Otype is the always-present type facade.
func (f *F) Otype() *feature.Otype { return f.otype }

// Oslots is the always-present slot-coverage facade.
func (f *F) Oslots() *feature.Oslots { return f.oslots }

// Get resolves a declared node feature by name.
func (f *F) Get(name string) (*feature.NodeFeature, bool) {
	nf, ok := f.nodes[name]
	return nf, ok
}

// Names lists every loaded node feature (excluding otype/oslots, which are
// addressed through their own accessors).
func (f *F) Names() []string {
	names := make([]string, 0, len(f.nodes))
	for n := range f.nodes {
		names = append(names, n)
	}
	return names
}

// Add wires a newly-loaded feature into the namespace (pkg/fabric's
// incremental add=true path).
func (f *F) Add(name string, nf *feature.NodeFeature) { f.nodes[name] = nf }
