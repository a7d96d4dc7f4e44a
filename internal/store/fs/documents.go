package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"storyloom/internal/entity"
)

func (c *Client) docPath(kind entity.Kind, id string) string {
	return filepath.Join(c.root, kindDir(kind), id+".json")
}

// writeDoc overwrites the document wholesale. Write-then-rename keeps a
// crash from leaving a torn document behind.
func (c *Client) writeDoc(kind entity.Kind, id string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s document %s: %w", kind, id, err)
	}
	path := c.docPath(kind, id)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s document %s: %w", kind, id, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing %s document %s: %w", kind, id, err)
	}
	return nil
}

// readDoc reports (false, nil) when no document exists. A document that
// exists but does not decode is an error, never silently dropped.
func (c *Client) readDoc(kind entity.Kind, id string, v any) (bool, error) {
	data, err := os.ReadFile(c.docPath(kind, id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s document %s: %w", kind, id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("malformed %s document %s: %w", kind, id, err)
	}
	return true, nil
}

func (c *Client) removeDoc(kind entity.Kind, id string) error {
	if err := os.Remove(c.docPath(kind, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting %s document %s: %w", kind, id, err)
	}
	return nil
}

func (c *Client) listKindIDs(kind entity.Kind) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(c.root, kindDir(kind)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s documents: %w", kind, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}

func checkID(id string, want entity.Kind) error {
	kind, ok := entity.KindOf(id)
	if !ok {
		return fmt.Errorf("malformed identifier %q", id)
	}
	if kind != want {
		return fmt.Errorf("identifier %q is not a %s identifier", id, want)
	}
	return nil
}
