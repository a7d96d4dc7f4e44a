package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"storyloom/internal/entity"
	"storyloom/internal/search"
)

func (c *Client) Upsert(ctx context.Context, kind entity.Kind, id, text string, meta map[string]string) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	sql := `
INSERT INTO documents (id, kind, body, meta)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    kind = EXCLUDED.kind,
    body = EXCLUDED.body,
    meta = EXCLUDED.meta
`
	if _, err := c.pool.Exec(ctx, sql, id, string(kind), text, metaJSON); err != nil {
		return fmt.Errorf("upserting document %s: %w", id, err)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	if _, err := c.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("removing document %s: %w", id, err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query string, kinds []entity.Kind, limit int) ([]search.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	kindNames := make([]string, 0, len(kinds))
	for _, k := range kinds {
		kindNames = append(kindNames, string(k))
	}

	sql := `
SELECT id, kind, meta,
    ts_rank(search_vector, plainto_tsquery('english', $1)) AS rank,
    CASE WHEN body <> '' THEN
        ts_headline('english', body, plainto_tsquery('english', $1),
            'MaxFragments=2, MaxWords=40, MinWords=20, StartSel=**, StopSel=**')
    ELSE '' END AS snippet
FROM documents
WHERE search_vector @@ plainto_tsquery('english', $1)
  AND (cardinality($2::text[]) = 0 OR kind = ANY($2::text[]))
ORDER BY rank DESC, id ASC
LIMIT $3
`

	rows, err := c.pool.Query(ctx, sql, query, kindNames, limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var hits []search.Hit
	for rows.Next() {
		var h search.Hit
		var kind string
		var rank float64
		var metaBytes []byte
		if err := rows.Scan(&h.ID, &kind, &metaBytes, &rank, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		h.Kind = entity.Kind(kind)
		// ts_rank grows with similarity; fold it into the lower-is-closer
		// distance contract.
		h.Distance = 1.0 / (1.0 + rank)
		if len(metaBytes) > 0 {
			if err := json.Unmarshal(metaBytes, &h.Meta); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search hits: %w", err)
	}

	if hits == nil {
		hits = []search.Hit{}
	}

	return hits, nil
}
