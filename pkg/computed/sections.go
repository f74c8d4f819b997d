package computed

import (
	"strconv"
	"strings"

	"github.com/context-fabric/context-fabric/pkg/feature"
)

const sectionPathSep = "\x1f"

// Sections is the per-language heading <-> node index described in spec
// §4.6 ("sections/structure"): a node -> heading-path map and a flat
// heading-path -> node map (path keys joined with sectionPathSep), built
// from otext.sectionTypes and the corresponding per-level heading-name
// feature.
type Sections struct {
	lang  string
	types []string

	owners   [][]uint32 // owners[level][slot] -> node owning that slot at that level
	features []*feature.NodeFeature

	nodeToHeading map[uint32][]string
	headingToNode map[string]uint32
}

// BuildSections indexes one language's section hierarchy. features must
// have the same length as sectionTypes, in the same coarse-to-fine order
// (e.g. [book, chapter, verse]).
func BuildSections(lang string, sectionTypes []string, features []*feature.NodeFeature, ot *feature.Otype, os *feature.Oslots) *Sections {
	maxSlot := ot.MaxSlot()
	s := &Sections{
		lang:          lang,
		types:         sectionTypes,
		features:      features,
		owners:        make([][]uint32, len(sectionTypes)),
		nodeToHeading: make(map[uint32][]string),
		headingToNode: make(map[string]uint32),
	}

	for level, typeName := range sectionTypes {
		s.owners[level] = make([]uint32, maxSlot+1)
		min, max, ok := ot.SInterval(typeName)
		if !ok {
			continue
		}
		for node := min; node <= max; node++ {
			for _, slot := range os.S(node) {
				s.owners[level][slot] = node
			}
		}
	}

	for level, typeName := range sectionTypes {
		min, max, ok := ot.SInterval(typeName)
		if !ok {
			continue
		}
		for node := min; node <= max; node++ {
			firstSlot, ok := os.MinSlot(node)
			if !ok {
				continue
			}
			path := make([]string, level+1)
			for j := 0; j <= level; j++ {
				owner := s.owners[j][firstSlot]
				path[j] = s.headingValue(j, owner)
			}
			s.nodeToHeading[node] = path
			s.headingToNode[strings.Join(path, sectionPathSep)] = node
		}
	}
	return s
}

func (s *Sections) headingValue(level int, node uint32) string {
	if node == 0 || level >= len(s.features) || s.features[level] == nil {
		return ""
	}
	f := s.features[level]
	if f.Kind() == feature.NodeFeatureKindInt {
		v, _ := f.VInt(node)
		return strconv.FormatInt(v, 10)
	}
	v, _ := f.VString(node)
	return v
}

// Lang returns the language code this index was built for.
func (s *Sections) Lang() string { return s.lang }

// NodeFromHeading looks up the node whose heading path matches headings
// exactly (spec §4.7 T.nodeFromSection). The path length determines which
// section level is addressed.
func (s *Sections) NodeFromHeading(headings ...string) (uint32, bool) {
	node, ok := s.headingToNode[strings.Join(headings, sectionPathSep)]
	return node, ok
}

// HeadingFromNode returns the heading path for node at whichever section
// level it belongs to (spec §4.7 T.sectionFromNode).
func (s *Sections) HeadingFromNode(node uint32) ([]string, bool) {
	path, ok := s.nodeToHeading[node]
	return path, ok
}
