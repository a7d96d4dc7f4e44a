// Package facts turns the loosely structured output of fact extraction into
// entity store mutations with provenance. Each proposed change is a tagged
// struct with an explicit allow-list of mutable fields; anything the
// extractor invents beyond these is dropped at decode time.
package facts

// SceneFacts is the full bag of changes proposed from one scene's prose.
type SceneFacts struct {
	// POVName is the name the prose associates with the point of view.
	// It is compared against the stored active character to catch silent
	// POV switches.
	POVName string `json:"pov_name,omitempty"`

	Characters    []CharacterFacts    `json:"characters,omitempty"`
	Locations     []LocationFacts     `json:"locations,omitempty"`
	Relationships []RelationshipFacts `json:"relationships,omitempty"`
	NewLoops      []NewLoop           `json:"new_loops,omitempty"`
	Resolutions   []LoopResolution    `json:"resolutions,omitempty"`
}

func (f *SceneFacts) Empty() bool {
	return f == nil || (len(f.Characters) == 0 && len(f.Locations) == 0 &&
		len(f.Relationships) == 0 && len(f.NewLoops) == 0 && len(f.Resolutions) == 0)
}

// CharacterFacts proposes changes to one character. Scalar fields replace;
// list fields union-append.
type CharacterFacts struct {
	CharacterID string `json:"character_id,omitempty"`
	Name        string `json:"name,omitempty"`

	LocationID string `json:"location_id,omitempty"`
	Emotional  string `json:"emotional,omitempty"`
	Physical   string `json:"physical,omitempty"`

	Inventory []string `json:"inventory,omitempty"`
	Goals     []string `json:"goals,omitempty"`
	Beliefs   []string `json:"beliefs,omitempty"`

	Summary string `json:"summary,omitempty"`
}

type LocationFacts struct {
	LocationID string `json:"location_id,omitempty"`

	Description  string `json:"description,omitempty"`
	Atmosphere   string `json:"atmosphere,omitempty"`
	Significance string `json:"significance,omitempty"`

	Features []string `json:"features,omitempty"`

	Summary string `json:"summary,omitempty"`
}

type RelationshipFacts struct {
	CharacterA string `json:"character_a"`
	CharacterB string `json:"character_b"`

	Type         string `json:"type,omitempty"`
	Status       string `json:"status,omitempty"`
	Intensity    *int   `json:"intensity,omitempty"`
	PerspectiveA string `json:"perspective_a,omitempty"`
	PerspectiveB string `json:"perspective_b,omitempty"`

	Event string `json:"event,omitempty"`
}

type NewLoop struct {
	Description  string   `json:"description"`
	Category     string   `json:"category,omitempty"`
	Importance   string   `json:"importance,omitempty"`
	CharacterIDs []string `json:"character_ids,omitempty"`
	LocationIDs  []string `json:"location_ids,omitempty"`
}

type LoopResolution struct {
	LoopID  string `json:"loop_id"`
	Summary string `json:"summary,omitempty"`
}

// Result reports what one Apply pass did, for observability.
type Result struct {
	CharactersUpdated    int
	CharactersCreated    int
	LocationsUpdated     int
	LoopsCreated         int
	LoopsResolved        int
	RelationshipsUpdated int

	// NewPOVCharacterID is set when a POV mismatch forked a new character.
	NewPOVCharacterID string
}
