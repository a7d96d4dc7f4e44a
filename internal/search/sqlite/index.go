package sqlite

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

	query := `
	INSERT INTO documents (id, kind, body, meta)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		kind = excluded.kind,
		body = excluded.body,
		meta = excluded.meta
	`
	if _, err := c.db.ExecContext(ctx, query, id, string(kind), text, metaJSON); err != nil {
		return fmt.Errorf("upserting document %s: %w", id, err)
	}
	return nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
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

	ftsQuery := toFTSQuery(query)
	if ftsQuery == "" {
		return []search.Hit{}, nil
	}

	args := []any{ftsQuery}
	kindFilter := ""
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		kindFilter = "AND d.kind IN (" + strings.Join(placeholders, ", ") + ")"
	}
	args = append(args, limit)

	// bm25 is a rank where lower means a better match, which is exactly
	// the distance contract.
	sqlQuery := `
	SELECT d.id, d.kind, d.meta,
		   bm25(documents_fts) AS distance,
		   snippet(documents_fts, 0, '**', '**', '...', 50) AS snippet
	FROM documents_fts
	JOIN documents d ON documents_fts.rowid = d.rowid
	WHERE documents_fts MATCH ?
	  ` + kindFilter + `
	ORDER BY distance ASC, d.id ASC
	LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var hits []search.Hit
	for rows.Next() {
		var h search.Hit
		var kind string
		var metaBytes []byte
		if err := rows.Scan(&h.ID, &kind, &metaBytes, &h.Distance, &h.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		h.Kind = entity.Kind(kind)
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

// toFTSQuery turns free text into an OR query of quoted tokens: similarity
// lookup wants ranked near matches, not strict conjunction.
func toFTSQuery(query string) string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		tokens = append(tokens, `"`+f+`"`)
	}
	return strings.Join(tokens, " OR ")
}
