package query

import (
	"sort"
	"strconv"
	"strings"

	"github.com/context-fabric/context-fabric/pkg/computed"
	"github.com/context-fabric/context-fabric/pkg/feature"
	"github.com/context-fabric/context-fabric/pkg/store"
)

// T is the text-and-sections namespace (spec §4.7).
type T struct {
	otype   *feature.Otype
	oslots  *feature.Oslots
	nodes   map[string]*feature.NodeFeature
	sections map[string]*computed.Sections
	formats  map[string]string
	defaultLang string
}

// NewT builds the T namespace from the loaded otext configuration.
func NewT(otype *feature.Otype, oslots *feature.Oslots, nodes map[string]*feature.NodeFeature, sections map[string]*computed.Sections, cfg store.OtextConfig) *T {
	lang := "en"
	for l := range sections {
		lang = l
		break
	}
	return &T{otype: otype, oslots: oslots, nodes: nodes, sections: sections, formats: cfg.Formats, defaultLang: lang}
}

// SectionFromNode returns the heading path for node, in lang (or the
// store's default language if lang is "").
func (t *T) SectionFromNode(node uint32, lang string) ([]string, bool) {
	s, ok := t.sectionIndex(lang)
	if !ok {
		return nil, false
	}
	return s.HeadingFromNode(node)
}

// NodeFromSection resolves a heading path to a node, in lang.
func (t *T) NodeFromSection(lang string, headings ...string) (uint32, bool) {
	s, ok := t.sectionIndex(lang)
	if !ok {
		return 0, false
	}
	return s.NodeFromHeading(headings...)
}

func (t *T) sectionIndex(lang string) (*computed.Sections, bool) {
	if lang == "" {
		lang = t.defaultLang
	}
	s, ok := t.sections[lang]
	return s, ok
}

// Text renders nodes as formatted text (spec §4.7 "T.text(nodes, fmt?)").
// With no fmt, nodes are expanded to their underlying slots (ascending) and
// joined by a single space using the "text" node feature — matching
// scenario S1 (`T.text([4]) = "a b"`). With fmt, otext.formats[fmt] is
// applied per slot and the results concatenated (format templates carry
// their own separators, e.g. "{word} ").
func (t *T) Text(nodes []uint32, fmt string) string {
	slots := t.expandSlots(nodes)
	if fmt == "" {
		textFeat := t.nodes["text"]
		if textFeat == nil {
			return ""
		}
		parts := make([]string, 0, len(slots))
		for _, s := range slots {
			if v, ok := textFeat.VString(s); ok {
				parts = append(parts, v)
			}
		}
		return strings.Join(parts, " ")
	}

	tmpl, ok := t.formats[fmt]
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, s := range slots {
		b.WriteString(t.expandTemplate(tmpl, s))
	}
	return b.String()
}

func (t *T) expandSlots(nodes []uint32) []uint32 {
	seen := make(map[uint32]bool)
	var slots []uint32
	for _, n := range nodes {
		for _, s := range t.oslots.S(n) {
			if !seen[s] {
				seen[s] = true
				slots = append(slots, s)
			}
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	return slots
}

// expandTemplate substitutes every "{name}" token in tmpl with the value of
// node feature "name" at slot, leaving unmatched or unknown tokens empty.
func (t *T) expandTemplate(tmpl string, slot uint32) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		open := strings.IndexByte(tmpl[i:], '{')
		if open < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		b.WriteString(tmpl[i : i+open])
		i += open
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			b.WriteString(tmpl[i:])
			break
		}
		name := tmpl[i+1 : i+end]
		i += end + 1
		if nf, ok := t.nodes[name]; ok {
			if nf.Kind() == feature.NodeFeatureKindString {
				v, _ := nf.VString(slot)
				b.WriteString(v)
			} else if v, ok := nf.VInt(slot); ok {
				b.WriteString(strconv.FormatInt(v, 10))
			}
		}
	}
	return b.String()
}
