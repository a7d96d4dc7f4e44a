package search

import (
	"context"

	"storyloom/internal/entity"
)

// Hit is one ranked result. Lower distance means more similar.
type Hit struct {
	ID       string
	Kind     entity.Kind
	Distance float64
	Meta     map[string]string
	Snippet  string
}

// Index is the similarity-search collaborator: ranked near-duplicate lookup
// over the searchable text of indexed entities.
type Index interface {
	Close(ctx context.Context) error
	Upsert(ctx context.Context, kind entity.Kind, id, text string, meta map[string]string) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, query string, kinds []entity.Kind, limit int) ([]Hit, error)
}
