package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"storyloom/internal/entity"
)

const countersFile = "counters.json"

// GenerateID allocates the next identifier for a kind. The counter document
// is treated as a cache, not a source of truth: every allocation scans the
// identifiers already persisted for the kind and raises the counter above
// the highest one found, so a stale, deleted, or hand-edited counter
// document can never hand out an identifier that is already on disk.
func (c *Client) GenerateID(ctx context.Context, kind entity.Kind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	counters, err := c.loadCounters()
	if err != nil {
		return "", err
	}

	last := counters[string(kind)]
	highest, err := c.highestPersisted(kind)
	if err != nil {
		return "", err
	}
	if highest > last {
		last = highest
	}

	next := last + 1
	counters[string(kind)] = next
	if err := c.saveCounters(counters); err != nil {
		return "", err
	}

	return entity.FormatID(kind, next), nil
}

func (c *Client) highestPersisted(kind entity.Kind) (int, error) {
	ids, err := c.listKindIDs(kind)
	if err != nil {
		return 0, err
	}
	highest := 0
	for _, id := range ids {
		gotKind, n, err := entity.ParseID(id)
		if err != nil || gotKind != kind {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (c *Client) loadCounters() (map[string]int, error) {
	data, err := os.ReadFile(filepath.Join(c.root, countersFile))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("reading counters document: %w", err)
	}
	var counters map[string]int
	if err := json.Unmarshal(data, &counters); err != nil {
		return nil, fmt.Errorf("malformed counters document: %w", err)
	}
	if counters == nil {
		counters = map[string]int{}
	}
	return counters, nil
}

func (c *Client) saveCounters(counters map[string]int) error {
	data, err := json.MarshalIndent(counters, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding counters document: %w", err)
	}
	path := filepath.Join(c.root, countersFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing counters document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing counters document: %w", err)
	}
	return nil
}
