package store

import (
	"io"

	json "github.com/goccy/go-json"
)

// FeatureMeta describes one declared feature, mirroring the per-feature
// `<name>_meta.json` sidecars plus the subset meta.json itself repeats for
// quick discovery without opening every sidecar (spec §6, §4.8 Explore).
type FeatureMeta struct {
	Name       string `json:"name"`
	ValueType  string `json:"valueType"`            // "str" | "int"
	HasValues  bool   `json:"edgeValues,omitempty"` // edge features only
	Doc        string `json:"doc,omitempty"`
	SourceFile string `json:"sourceFile,omitempty"`
}

// OtextConfig describes the section-hierarchy and text-formatting
// configuration carried by the `otext` source file (spec §4.6, §6).
type OtextConfig struct {
	SectionTypes    []string            `json:"sectionTypes"`
	SectionFeatures map[string][]string `json:"sectionFeatures"` // lang -> feature name per section level
	Formats         map[string]string   `json:"formats"`         // format name -> template
}

// Meta is the decoded form of meta.json (spec §6).
type Meta struct {
	Version  int         `json:"version"`
	MaxSlot  uint32      `json:"maxSlot"`
	MaxNode  uint32      `json:"maxNode"`
	SlotType string      `json:"slotType"`
	Features struct {
		Node []FeatureMeta `json:"node"`
		Edge []FeatureMeta `json:"edge"`
	} `json:"features"`
	Otext OtextConfig `json:"otext"`
}

// WriteMeta encodes m as indented JSON (meta.json is hand-readable by
// design — spec §4.3 calls it out separately from the binary array files).
func WriteMeta(w io.Writer, m Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// ReadMeta decodes meta.json.
func ReadMeta(r io.Reader) (Meta, error) {
	var m Meta
	dec := json.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return Meta{}, err
	}
	return m, nil
}
