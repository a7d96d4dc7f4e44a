package entity

type LoreType string

const (
	LoreRule       LoreType = "rule"
	LoreFact       LoreType = "fact"
	LoreConstraint LoreType = "constraint"
	LoreCapability LoreType = "capability"
	LoreLimitation LoreType = "limitation"
)

type Lore struct {
	Meta
	Type        LoreType `json:"type"`
	Category    string   `json:"category,omitempty"`
	Content     string   `json:"content"`
	Importance  string   `json:"importance,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	SourceScene string   `json:"source_scene,omitempty"`

	// PotentialContradictions is symmetric: when A lists B, B lists A.
	PotentialContradictions []string `json:"potential_contradictions,omitempty"`
}
