package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"storyloom/internal/store"
)

const stateFile = "state.json"

func (c *Client) LoadState(ctx context.Context) (*store.State, error) {
	data, err := os.ReadFile(filepath.Join(c.root, stateFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state document: %w", err)
	}
	var s store.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed state document: %w", err)
	}
	return &s, nil
}

func (c *Client) SaveState(ctx context.Context, s *store.State) error {
	now := c.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state document: %w", err)
	}
	path := filepath.Join(c.root, stateFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing state document: %w", err)
	}
	return nil
}
