package query

import (
	"github.com/context-fabric/context-fabric/pkg/feature"
	"github.com/context-fabric/context-fabric/pkg/store"
)

// Api binds the F/E/C/L/N/T namespaces into the handle returned by
// pkg/fabric's Load/LoadAll (spec §4.7). CF and TF both alias the same
// value: the Python original (cfabric) exposes the loaded handle under
// either name interchangeably, a behavior recovered from
// libs/core/tests/unit/core/test_api_aliases.py (SPEC_FULL §3.1) and
// carried here rather than silently dropped.
type Api struct {
	F *F
	E *E
	C *Computed
	L *L
	N *N
	T *T

	CF *Api
	TF *Api
}

// New builds an Api from already-loaded views and indices. pkg/fabric owns
// assembling the otype/oslots/node/edge views and the Computed struct; New
// just wires the namespaces and closes the CF/TF self-reference.
func New(otype *feature.Otype, oslots *feature.Oslots, nodes map[string]*feature.NodeFeature, edges map[string]*feature.EdgeFeature, c *Computed, otext store.OtextConfig) *Api {
	a := &Api{
		F: NewF(otype, oslots, nodes),
		E: NewE(edges, c.Rank),
		C: c,
		L: NewL(otype, oslots, c),
		N: NewN(c),
		T: NewT(otype, oslots, nodes, c.Sections, otext),
	}
	a.CF = a
	a.TF = a
	return a
}

// AddNodeFeature wires a newly loaded node feature into the live Api
// (pkg/fabric's Load(names, true) incremental-load path, SPEC_FULL §3.1).
func (a *Api) AddNodeFeature(name string, nf *feature.NodeFeature) { a.F.Add(name, nf) }

// AddEdgeFeature wires a newly loaded edge feature into the live Api.
func (a *Api) AddEdgeFeature(name string, ef *feature.EdgeFeature) { a.E.Add(name, ef) }
