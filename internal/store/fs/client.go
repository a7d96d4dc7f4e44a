package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"storyloom/internal/entity"
	"storyloom/internal/store"
)

var _ store.Store = (*Client)(nil)

// Client persists one JSON document per entity under
// <root>/<kind dir>/<id>.json, with counters.json and state.json at the
// root. Single-process ownership is assumed; the mutex only serializes
// identifier allocation within the process.
type Client struct {
	root string
	now  func() time.Time

	mu sync.Mutex
}

func New(root string) (*Client, error) {
	for _, kind := range entity.Kinds {
		if err := os.MkdirAll(filepath.Join(root, kindDir(kind)), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory for %s: %w", kind, err)
		}
	}
	return &Client{root: root, now: time.Now}, nil
}

func (c *Client) Close(ctx context.Context) error { return nil }

// Root is the on-disk tree the checkpoint manager snapshots.
func (c *Client) Root() string { return c.root }

func kindDir(kind entity.Kind) string {
	switch kind {
	case entity.KindCharacter:
		return "characters"
	case entity.KindLocation:
		return "locations"
	case entity.KindScene:
		return "scenes"
	case entity.KindRelationship:
		return "relationships"
	case entity.KindOpenLoop:
		return "open_loops"
	case entity.KindLore:
		return "lore"
	case entity.KindFaction:
		return "factions"
	case entity.KindPlotBeat:
		return "plot_beats"
	}
	return string(kind)
}
