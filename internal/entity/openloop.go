package entity

type LoopStatus string

const (
	LoopOpen      LoopStatus = "open"
	LoopResolved  LoopStatus = "resolved"
	LoopAbandoned LoopStatus = "abandoned"
)

// OpenLoop is an unresolved narrative thread tracked until explicitly
// resolved or abandoned.
type OpenLoop struct {
	Meta
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Importance  string     `json:"importance,omitempty"`
	Status      LoopStatus `json:"status"`

	CharacterIDs []string `json:"character_ids,omitempty"`
	LocationIDs  []string `json:"location_ids,omitempty"`

	MentionCount      int  `json:"mention_count"`
	LastMentionedTick int  `json:"last_mentioned_tick"`
	IsStoryGoal       bool `json:"is_story_goal"`

	ResolvedBy string `json:"resolved_by,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// References reports whether the loop mentions the given character.
func (l *OpenLoop) References(characterID string) bool {
	for _, id := range l.CharacterIDs {
		if id == characterID {
			return true
		}
	}
	return false
}
