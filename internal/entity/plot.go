package entity

type BeatStatus string

const (
	BeatPending    BeatStatus = "pending"
	BeatInProgress BeatStatus = "in_progress"
	BeatCompleted  BeatStatus = "completed"
	BeatSkipped    BeatStatus = "skipped"
)

// PlotBeat is a single planned story event. Order within the outline follows
// the identifier sequence.
type PlotBeat struct {
	Meta
	Description   string     `json:"description"`
	Status        BeatStatus `json:"status"`
	Prerequisites []string   `json:"prerequisites,omitempty"`

	// SceneID links a completed beat to the scene that satisfied it.
	SceneID string `json:"scene_id,omitempty"`
}
