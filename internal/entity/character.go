package entity

import "strings"

type Character struct {
	Meta
	FirstName   string   `json:"first_name"`
	FamilyName  string   `json:"family_name,omitempty"`
	Title       string   `json:"title,omitempty"`
	Nicknames   []string `json:"nicknames,omitempty"`
	Role        string   `json:"role,omitempty"`
	Description string   `json:"description,omitempty"`
	Backstory   string   `json:"backstory,omitempty"`

	State         CharacterState `json:"state"`
	Goals         GoalTracking   `json:"goals"`
	Relationships []string       `json:"relationships,omitempty"`
	Active        bool           `json:"active"`

	History []ChangeEntry `json:"history,omitempty"`
}

// CharacterState holds the fields that change scene to scene.
type CharacterState struct {
	LocationID string   `json:"location_id,omitempty"`
	Emotional  string   `json:"emotional,omitempty"`
	Physical   string   `json:"physical,omitempty"`
	Inventory  []string `json:"inventory,omitempty"`
	Goals      []string `json:"goals,omitempty"`
	Beliefs    []string `json:"beliefs,omitempty"`
}

type GoalTracking struct {
	Immediate []TrackedGoal `json:"immediate,omitempty"`
	Arc       []TrackedGoal `json:"arc,omitempty"`
	Story     []TrackedGoal `json:"story,omitempty"`
	Completed []string      `json:"completed,omitempty"`
	Abandoned []string      `json:"abandoned,omitempty"`
}

type TrackedGoal struct {
	Text     string  `json:"text"`
	Progress float64 `json:"progress"`
}

// DisplayName is the name prose and fact extraction refer to the character
// by: first and family name joined, falling back to whichever is present.
func (c *Character) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.FamilyName))
}
