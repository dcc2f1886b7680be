package content

import "strings"

// Scale names as persisted.
const (
	ScaleGDS = "gds"
	ScalePHQ = "phq"
)

// ScaleItems is the number of items on each known scale.
var ScaleItems = map[string]int{
	ScaleGDS: 15,
	ScalePHQ: 9,
}

// NormalizeScale folds spellings like "GDS-15" or "PHQ9" to the canonical
// scale name. Unknown scales are returned lowercased and trimmed.
func NormalizeScale(s string) string {
	n := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(n, ScaleGDS):
		return ScaleGDS
	case strings.HasPrefix(n, ScalePHQ):
		return ScalePHQ
	}
	return n
}

type Document struct {
	Chapters []Chapter `json:"chapters" yaml:"chapters"`
}

type Chapter struct {
	ChapterID string  `json:"chapter_id" yaml:"chapter_id"`
	Title     string  `json:"title,omitempty" yaml:"title,omitempty"`
	Scenes    []Scene `json:"scenes" yaml:"scenes"`
}

type Scene struct {
	SceneID string   `json:"scene_id" yaml:"scene_id"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Text    string   `json:"text" yaml:"text"`
	Options []Option `json:"options" yaml:"options"`
}

type Option struct {
	OptionID      string         `json:"option_id" yaml:"option_id"`
	OptionText    string         `json:"option_text" yaml:"option_text"`
	NextChapterID string         `json:"next_chapter_id,omitempty" yaml:"next_chapter_id,omitempty"`
	Consequence   string         `json:"consequence,omitempty" yaml:"consequence,omitempty"`
	ConsequenceTx string         `json:"consequence_text,omitempty" yaml:"consequence_text,omitempty"`
	Narrative     string         `json:"narrative,omitempty" yaml:"narrative,omitempty"`
	Mappings      []Mapping      `json:"mappings,omitempty" yaml:"mappings,omitempty"`
	GDSMapping    []Mapping      `json:"gds_mapping,omitempty" yaml:"gds_mapping,omitempty"`
	PHQMapping    []Mapping      `json:"phq_mapping,omitempty" yaml:"phq_mapping,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Mapping is a pre-authored association between an option and a scale item.
type Mapping struct {
	MappingID        string   `json:"mapping_id,omitempty" yaml:"mapping_id,omitempty"`
	Scale            string   `json:"scale,omitempty" yaml:"scale,omitempty"`
	Item             int      `json:"item" yaml:"item"`
	Weight           *float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
	Confidence       *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	PrimaryConstruct string   `json:"primary_construct,omitempty" yaml:"primary_construct,omitempty"`
	Rationale        string   `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// ConsequenceText returns the narration for a terminal option, if any.
func (o Option) ConsequenceText() string {
	for _, s := range []string{o.Consequence, o.ConsequenceTx, o.Narrative} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// AllMappings merges the generic and per-scale lists, scale names normalized.
func (o Option) AllMappings() []Mapping {
	out := make([]Mapping, 0, len(o.Mappings)+len(o.GDSMapping)+len(o.PHQMapping))
	for _, m := range o.Mappings {
		m.Scale = NormalizeScale(m.Scale)
		out = append(out, m)
	}
	for _, m := range o.GDSMapping {
		m.Scale = ScaleGDS
		out = append(out, m)
	}
	for _, m := range o.PHQMapping {
		m.Scale = ScalePHQ
		out = append(out, m)
	}
	return out
}
