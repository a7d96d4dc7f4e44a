package fs

import (
	"context"
	"fmt"

	"storyloom/internal/entity"
)

// SaveRelationship enforces the one-relationship-per-unordered-pair
// invariant at the store level: a save whose normalized pair collides with
// an existing relationship under a different identifier is rejected.
func (c *Client) SaveRelationship(ctx context.Context, r *entity.Relationship) error {
	if err := checkID(r.ID, entity.KindRelationship); err != nil {
		return err
	}
	if r.CharacterA == "" || r.CharacterB == "" {
		return fmt.Errorf("relationship %s must reference two characters", r.ID)
	}
	if r.CharacterA == r.CharacterB {
		return fmt.Errorf("relationship %s references %s on both sides", r.ID, r.CharacterA)
	}

	existing, err := c.GetRelationshipBetween(ctx, r.CharacterA, r.CharacterB)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != r.ID {
		return fmt.Errorf("relationship between %s and %s already exists as %s", r.CharacterA, r.CharacterB, existing.ID)
	}

	r.Touch(c.now())
	return c.writeDoc(entity.KindRelationship, r.ID, r)
}

func (c *Client) GetRelationship(ctx context.Context, id string) (*entity.Relationship, error) {
	var r entity.Relationship
	ok, err := c.readDoc(entity.KindRelationship, id, &r)
	if err != nil || !ok {
		return nil, err
	}
	return &r, nil
}

func (c *Client) ListRelationships(ctx context.Context) ([]*entity.Relationship, error) {
	ids, err := c.listKindIDs(entity.KindRelationship)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Relationship, 0, len(ids))
	for _, id := range ids {
		r, err := c.GetRelationship(ctx, id)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetRelationshipBetween is symmetric: the argument order never matters.
func (c *Client) GetRelationshipBetween(ctx context.Context, a, b string) (*entity.Relationship, error) {
	want := pairKey(a, b)
	all, err := c.ListRelationships(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if pairKey(r.CharacterA, r.CharacterB) == want {
			return r, nil
		}
	}
	return nil, nil
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
