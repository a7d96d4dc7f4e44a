package entity

type Location struct {
	Meta
	Name         string         `json:"name"`
	Aliases      []string       `json:"aliases,omitempty"`
	Description  string         `json:"description,omitempty"`
	Atmosphere   string         `json:"atmosphere,omitempty"`
	Sensory      SensoryDetails `json:"sensory"`
	Features     []string       `json:"features,omitempty"`
	Significance string         `json:"significance,omitempty"`

	History []ChangeEntry `json:"history,omitempty"`
}

type SensoryDetails struct {
	Sights []string `json:"sights,omitempty"`
	Sounds []string `json:"sounds,omitempty"`
	Smells []string `json:"smells,omitempty"`
}
