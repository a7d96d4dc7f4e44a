package fs

import (
	"context"
	"sort"

	"storyloom/internal/entity"
)

func (c *Client) ListIDs(ctx context.Context, kind entity.Kind) ([]string, error) {
	return c.listKindIDs(kind)
}

func (c *Client) SaveCharacter(ctx context.Context, ch *entity.Character) error {
	if err := checkID(ch.ID, entity.KindCharacter); err != nil {
		return err
	}
	ch.Touch(c.now())
	return c.writeDoc(entity.KindCharacter, ch.ID, ch)
}

func (c *Client) GetCharacter(ctx context.Context, id string) (*entity.Character, error) {
	var ch entity.Character
	ok, err := c.readDoc(entity.KindCharacter, id, &ch)
	if err != nil || !ok {
		return nil, err
	}
	return &ch, nil
}

func (c *Client) ListCharacters(ctx context.Context) ([]*entity.Character, error) {
	ids, err := c.listKindIDs(entity.KindCharacter)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Character, 0, len(ids))
	for _, id := range ids {
		ch, err := c.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		if ch != nil {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (c *Client) SaveLocation(ctx context.Context, l *entity.Location) error {
	if err := checkID(l.ID, entity.KindLocation); err != nil {
		return err
	}
	l.Touch(c.now())
	return c.writeDoc(entity.KindLocation, l.ID, l)
}

func (c *Client) GetLocation(ctx context.Context, id string) (*entity.Location, error) {
	var l entity.Location
	ok, err := c.readDoc(entity.KindLocation, id, &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]*entity.Location, error) {
	ids, err := c.listKindIDs(entity.KindLocation)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Location, 0, len(ids))
	for _, id := range ids {
		l, err := c.GetLocation(ctx, id)
		if err != nil {
			return nil, err
		}
		if l != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

func (c *Client) SaveScene(ctx context.Context, s *entity.Scene) error {
	if err := checkID(s.ID, entity.KindScene); err != nil {
		return err
	}
	s.Touch(c.now())
	return c.writeDoc(entity.KindScene, s.ID, s)
}

func (c *Client) GetScene(ctx context.Context, id string) (*entity.Scene, error) {
	var s entity.Scene
	ok, err := c.readDoc(entity.KindScene, id, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListScenes(ctx context.Context) ([]*entity.Scene, error) {
	ids, err := c.listKindIDs(entity.KindScene)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Scene, 0, len(ids))
	for _, id := range ids {
		s, err := c.GetScene(ctx, id)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tick < out[j].Tick })
	return out, nil
}

func (c *Client) SaveLore(ctx context.Context, l *entity.Lore) error {
	if err := checkID(l.ID, entity.KindLore); err != nil {
		return err
	}
	l.Touch(c.now())
	return c.writeDoc(entity.KindLore, l.ID, l)
}

func (c *Client) GetLore(ctx context.Context, id string) (*entity.Lore, error) {
	var l entity.Lore
	ok, err := c.readDoc(entity.KindLore, id, &l)
	if err != nil || !ok {
		return nil, err
	}
	return &l, nil
}

func (c *Client) ListLore(ctx context.Context) ([]*entity.Lore, error) {
	ids, err := c.listKindIDs(entity.KindLore)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Lore, 0, len(ids))
	for _, id := range ids {
		l, err := c.GetLore(ctx, id)
		if err != nil {
			return nil, err
		}
		if l != nil {
			out = append(out, l)
		}
	}
	return out, nil
}

// DeleteLore is the only hard entity deletion the store supports.
func (c *Client) DeleteLore(ctx context.Context, id string) error {
	if err := checkID(id, entity.KindLore); err != nil {
		return err
	}
	return c.removeDoc(entity.KindLore, id)
}

func (c *Client) SaveFaction(ctx context.Context, f *entity.Faction) error {
	if err := checkID(f.ID, entity.KindFaction); err != nil {
		return err
	}
	f.Touch(c.now())
	return c.writeDoc(entity.KindFaction, f.ID, f)
}

func (c *Client) GetFaction(ctx context.Context, id string) (*entity.Faction, error) {
	var f entity.Faction
	ok, err := c.readDoc(entity.KindFaction, id, &f)
	if err != nil || !ok {
		return nil, err
	}
	return &f, nil
}

func (c *Client) ListFactions(ctx context.Context) ([]*entity.Faction, error) {
	ids, err := c.listKindIDs(entity.KindFaction)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Faction, 0, len(ids))
	for _, id := range ids {
		f, err := c.GetFaction(ctx, id)
		if err != nil {
			return nil, err
		}
		if f != nil {
			out = append(out, f)
		}
	}
	return out, nil
}

func (c *Client) SavePlotBeat(ctx context.Context, b *entity.PlotBeat) error {
	if err := checkID(b.ID, entity.KindPlotBeat); err != nil {
		return err
	}
	b.Touch(c.now())
	return c.writeDoc(entity.KindPlotBeat, b.ID, b)
}

func (c *Client) GetPlotBeat(ctx context.Context, id string) (*entity.PlotBeat, error) {
	var b entity.PlotBeat
	ok, err := c.readDoc(entity.KindPlotBeat, id, &b)
	if err != nil || !ok {
		return nil, err
	}
	return &b, nil
}

func (c *Client) ListPlotBeats(ctx context.Context) ([]*entity.PlotBeat, error) {
	ids, err := c.listKindIDs(entity.KindPlotBeat)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.PlotBeat, 0, len(ids))
	for _, id := range ids {
		b, err := c.GetPlotBeat(ctx, id)
		if err != nil {
			return nil, err
		}
		if b != nil {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		_, ni, _ := entity.ParseID(out[i].ID)
		_, nj, _ := entity.ParseID(out[j].ID)
		return ni < nj
	})
	return out, nil
}
