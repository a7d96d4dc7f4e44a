package fs

import (
	"context"
	"fmt"

	"storyloom/internal/entity"
)

func (c *Client) SaveOpenLoop(ctx context.Context, l *entity.OpenLoop) error {
	if err := checkID(l.ID, entity.KindOpenLoop); err != nil {
		return err
	}
	if l.Status == "" {
		l.Status = entity.LoopOpen
	}
	l.Touch(c.now())
	return c.writeDoc(entity.KindOpenLoop, l.ID, l)
}

func (c *Client) GetOpenLoop(ctx context.Context, id string) (*entity.OpenLoop, error) {
	var l entity.OpenLoop
	ok, err := c.readDoc(entity.KindOpenLoop, id, &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (c *Client) ListOpenLoops(ctx context.Context) ([]*entity.OpenLoop, error) {
	ids, err := c.listKindIDs(entity.KindOpenLoop)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.OpenLoop, 0, len(ids))
	for _, id := range ids {
		l, err := c.GetOpenLoop(ctx, id)
		if err != nil {
			return nil, err
		}
		if l != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

// ResolveOpenLoop transitions open → resolved and stamps provenance.
// Resolving a loop that is no longer open is a no-op.
func (c *Client) ResolveOpenLoop(ctx context.Context, id, sceneID, summary string) error {
	l, err := c.GetOpenLoop(ctx, id)
	if err != nil {
		return err
	}
	if l == nil {
		return fmt.Errorf("open loop %s not found", id)
	}
	if l.Status != entity.LoopOpen {
		return nil
	}
	l.Status = entity.LoopResolved
	l.ResolvedBy = sceneID
	l.Resolution = summary
	return c.SaveOpenLoop(ctx, l)
}
