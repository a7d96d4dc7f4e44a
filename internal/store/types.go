package store

import "time"

// State is the per-project persisted engine state. The orchestrator reads it
// at tick start and writes it only at successful tick end.
type State struct {
	CurrentTick     int        `json:"current_tick"`
	ActiveCharacter string     `json:"active_character,omitempty"`
	StoryGoals      []string   `json:"story_goals,omitempty"`
	Foundation      Foundation `json:"story_foundation"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Foundation captures the user-supplied premise the story grows from.
type Foundation struct {
	Premise     string `json:"premise,omitempty"`
	Protagonist string `json:"protagonist,omitempty"`
	// UserStoryGoal, when set, is the primary story goal and disables
	// automatic goal promotion.
	UserStoryGoal string `json:"user_story_goal,omitempty"`
}

// HasStoryGoal reports whether a primary story goal exists, either
// user-specified or promoted from an open loop.
func (s *State) HasStoryGoal() bool {
	return s.Foundation.UserStoryGoal != "" || len(s.StoryGoals) > 0
}
