package entity

type TensionCategory string

const (
	TensionCalm      TensionCategory = "calm"
	TensionRising    TensionCategory = "rising"
	TensionHigh      TensionCategory = "high"
	TensionClimactic TensionCategory = "climactic"
)

type Scene struct {
	Meta
	Tick         int      `json:"tick"`
	Title        string   `json:"title"`
	POVCharacter string   `json:"pov_character"`
	LocationID   string   `json:"location_id,omitempty"`
	WordCount    int      `json:"word_count"`
	Summary      []string `json:"summary,omitempty"`
	Present      []string `json:"present,omitempty"`

	TensionLevel    int             `json:"tension_level,omitempty"`
	TensionCategory TensionCategory `json:"tension_category,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}
