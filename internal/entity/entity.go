package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindCharacter    Kind = "character"
	KindLocation     Kind = "location"
	KindScene        Kind = "scene"
	KindRelationship Kind = "relationship"
	KindOpenLoop     Kind = "open_loop"
	KindLore         Kind = "lore"
	KindFaction      Kind = "faction"
	KindPlotBeat     Kind = "plot_beat"
)

var Kinds = []Kind{
	KindCharacter,
	KindLocation,
	KindScene,
	KindRelationship,
	KindOpenLoop,
	KindLore,
	KindFaction,
	KindPlotBeat,
}

type idFormat struct {
	prefix string
	pad    int
}

var idFormats = map[Kind]idFormat{
	KindCharacter:    {prefix: "char", pad: 0},
	KindLocation:     {prefix: "loc", pad: 0},
	KindScene:        {prefix: "scene", pad: 3},
	KindRelationship: {prefix: "rel", pad: 0},
	KindOpenLoop:     {prefix: "loop", pad: 0},
	KindLore:         {prefix: "lore", pad: 0},
	KindFaction:      {prefix: "faction", pad: 0},
	KindPlotBeat:     {prefix: "beat", pad: 0},
}

var prefixKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(idFormats))
	for kind, f := range idFormats {
		m[f.prefix] = kind
	}
	return m
}()

func (k Kind) Valid() bool {
	_, ok := idFormats[k]
	return ok
}

// FormatID renders the identifier for the nth entity of a kind, e.g.
// FormatID(KindScene, 12) == "scene_012".
func FormatID(kind Kind, n int) string {
	f, ok := idFormats[kind]
	if !ok {
		return fmt.Sprintf("unknown_%d", n)
	}
	if f.pad > 0 {
		return fmt.Sprintf("%s_%0*d", f.prefix, f.pad, n)
	}
	return fmt.Sprintf("%s_%d", f.prefix, n)
}

// ParseID splits an identifier into its kind and sequence number.
func ParseID(id string) (Kind, int, error) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, fmt.Errorf("malformed identifier %q", id)
	}
	kind, ok := prefixKinds[id[:idx]]
	if !ok {
		return "", 0, fmt.Errorf("unknown identifier prefix in %q", id)
	}
	n, err := strconv.Atoi(id[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed identifier %q: %w", id, err)
	}
	return kind, n, nil
}

// KindOf reports the kind encoded in an identifier's prefix.
func KindOf(id string) (Kind, bool) {
	kind, _, err := ParseID(id)
	if err != nil {
		return "", false
	}
	return kind, true
}

// Meta is embedded in every persisted entity.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch refreshes the update timestamp, setting the creation timestamp on
// first save.
func (m *Meta) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// ChangeEntry is one record in a character or location history log.
type ChangeEntry struct {
	Tick          int      `json:"tick"`
	SceneID       string   `json:"scene_id"`
	ChangedFields []string `json:"changed_fields"`
	Summary       string   `json:"summary"`
}
