package entity

type Faction struct {
	Meta
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MemberIDs   []string `json:"member_ids,omitempty"`
	Standing    string   `json:"standing,omitempty"`

	History []ChangeEntry `json:"history,omitempty"`
}
