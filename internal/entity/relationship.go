package entity

// Relationship links an unordered pair of characters. The pair is fixed at
// creation; CharacterA and CharacterB carry no semantic ordering.
type Relationship struct {
	Meta
	CharacterA   string `json:"character_a"`
	CharacterB   string `json:"character_b"`
	Type         string `json:"type"`
	PerspectiveA string `json:"perspective_a,omitempty"`
	PerspectiveB string `json:"perspective_b,omitempty"`
	Status       string `json:"status,omitempty"`
	Intensity    int    `json:"intensity"`

	History []RelationshipEvent `json:"history,omitempty"`
}

type RelationshipEvent struct {
	Tick         int    `json:"tick"`
	SceneID      string `json:"scene_id"`
	Event        string `json:"event"`
	StatusChange string `json:"status_change,omitempty"`
}

// Involves reports whether the relationship references the given character.
func (r *Relationship) Involves(characterID string) bool {
	return r.CharacterA == characterID || r.CharacterB == characterID
}

// Other returns the counterpart of the given character in the pair, or ""
// when the character is not part of it.
func (r *Relationship) Other(characterID string) string {
	switch characterID {
	case r.CharacterA:
		return r.CharacterB
	case r.CharacterB:
		return r.CharacterA
	}
	return ""
}
