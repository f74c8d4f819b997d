package store

// FormatVersion is bumped whenever the on-disk layout or CFM1 kind/dtype
// encoding changes in a way old readers can't tolerate. A mismatch between
// a store's meta.json "version" and this constant forces recompilation
// (spec §3 "Lifecycle", scenario S5).
const FormatVersion = 1

// Kind namespaces the four on-disk subdirectories a store is split into,
// matching spec §4.3's "kind ∈ {warp, features, edges, computed}".
type Kind string

const (
	KindWarp     Kind = "warp"
	KindFeatures Kind = "features"
	KindEdges    Kind = "edges"
	KindComputed Kind = "computed"
)

// MetaFileName is the store's top-level metadata document.
const MetaFileName = "meta.json"

// Well-known file basenames within warp/ and computed/.
const (
	OtypeArrayFile   = "otype"
	OtypeTypesFile   = "otype_types.json"
	OslotsCSRFile    = "oslots"
	RankArrayFile    = "rank"
	OrderArrayFile   = "order"
	LevUpCSRFile     = "levup"
	LevDownCSRFile   = "levdown"
	BoundaryFirstCSR = "boundary_first"
	BoundaryLastCSR  = "boundary_last"
	LevelsFile       = "levels.json"
)

// dirFor returns the subdirectory name for a kind.
func dirFor(k Kind) string { return string(k) }
