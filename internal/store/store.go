package store

import (
	"context"

	"storyloom/internal/entity"
)

// Store is durable CRUD for every entity kind plus identifier allocation.
// Get methods return (nil, nil) when no entity exists for the identifier;
// a document that exists but cannot be decoded is an error.
type Store interface {
	Close(ctx context.Context) error

	// GenerateID allocates the next identifier for a kind. Allocation is
	// monotonic and reconciles against identifiers already persisted, so a
	// stale or deleted counter document never causes a collision.
	GenerateID(ctx context.Context, kind entity.Kind) (string, error)

	ListIDs(ctx context.Context, kind entity.Kind) ([]string, error)

	SaveCharacter(ctx context.Context, c *entity.Character) error
	GetCharacter(ctx context.Context, id string) (*entity.Character, error)
	ListCharacters(ctx context.Context) ([]*entity.Character, error)

	SaveLocation(ctx context.Context, l *entity.Location) error
	GetLocation(ctx context.Context, id string) (*entity.Location, error)
	ListLocations(ctx context.Context) ([]*entity.Location, error)

	SaveScene(ctx context.Context, s *entity.Scene) error
	GetScene(ctx context.Context, id string) (*entity.Scene, error)
	// ListScenes returns scenes sorted by tick. Other kinds carry no
	// ordering guarantee.
	ListScenes(ctx context.Context) ([]*entity.Scene, error)

	SaveRelationship(ctx context.Context, r *entity.Relationship) error
	GetRelationship(ctx context.Context, id string) (*entity.Relationship, error)
	ListRelationships(ctx context.Context) ([]*entity.Relationship, error)
	// GetRelationshipBetween is symmetric in its two arguments.
	GetRelationshipBetween(ctx context.Context, a, b string) (*entity.Relationship, error)

	SaveOpenLoop(ctx context.Context, l *entity.OpenLoop) error
	GetOpenLoop(ctx context.Context, id string) (*entity.OpenLoop, error)
	ListOpenLoops(ctx context.Context) ([]*entity.OpenLoop, error)
	// ResolveOpenLoop transitions open → resolved with provenance. Resolving
	// an already-resolved loop is a no-op.
	ResolveOpenLoop(ctx context.Context, id, sceneID, summary string) error

	SaveLore(ctx context.Context, l *entity.Lore) error
	GetLore(ctx context.Context, id string) (*entity.Lore, error)
	ListLore(ctx context.Context) ([]*entity.Lore, error)
	DeleteLore(ctx context.Context, id string) error

	SaveFaction(ctx context.Context, f *entity.Faction) error
	GetFaction(ctx context.Context, id string) (*entity.Faction, error)
	ListFactions(ctx context.Context) ([]*entity.Faction, error)

	SavePlotBeat(ctx context.Context, b *entity.PlotBeat) error
	GetPlotBeat(ctx context.Context, id string) (*entity.PlotBeat, error)
	ListPlotBeats(ctx context.Context) ([]*entity.PlotBeat, error)

	LoadState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, s *State) error
}
