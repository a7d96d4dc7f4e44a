package actions

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyloom/internal/entity"
	"storyloom/internal/score"
	"storyloom/internal/search"
	"storyloom/internal/store"
)

// Builtins owns the standard operation set. The current tick is set by the
// orchestrator before each dispatch; the engine is single-threaded by
// design so plain assignment is fine.
type Builtins struct {
	store store.Store
	index search.Index
	log   *zap.Logger
	tick  int
}

func NewBuiltins(st store.Store, idx search.Index, log *zap.Logger) *Builtins {
	return &Builtins{store: st, index: idx, log: log}
}

func (b *Builtins) SetTick(tick int) { b.tick = tick }

// EntityGenerationOps are the operations allowed in the entity-generation
// sub-phase of the first tick.
var EntityGenerationOps = map[string]bool{
	"create_character": true,
	"create_location":  true,
	"generate_name":    true,
}

func (b *Builtins) RegisterAll(d *Dispatcher) error {
	handlers := []Handler{
		{
			Name:     "create_character",
			Required: []string{"name"},
			Optional: []string{"role", "description", "backstory", "location_id", "emotional", "physical"},
			Run:      b.createCharacter,
		},
		{
			Name:     "create_location",
			Required: []string{"name"},
			Optional: []string{"description", "atmosphere", "significance"},
			Run:      b.createLocation,
		},
		{
			Name:     "generate_name",
			Required: []string{"kind"},
			Optional: []string{"seed"},
			Run:      b.generateName,
		},
		{
			Name:     "create_relationship",
			Required: []string{"character_a", "character_b", "type"},
			Optional: []string{"status", "intensity", "perspective_a", "perspective_b"},
			Run:      b.createRelationship,
		},
		{
			Name:     "update_relationship",
			Required: []string{"character_a", "character_b"},
			Optional: []string{"type", "status", "intensity", "event"},
			Run:      b.updateRelationship,
		},
		{
			Name:     "add_open_loop",
			Required: []string{"description"},
			Optional: []string{"category", "importance", "character_ids", "location_ids"},
			Run:      b.addOpenLoop,
		},
		{
			Name:     "resolve_open_loop",
			Required: []string{"loop_id"},
			Optional: []string{"summary"},
			Run:      b.resolveOpenLoop,
		},
		{
			Name:     "update_character_state",
			Required: []string{"character_id"},
			Optional: []string{"location_id", "emotional", "physical", "add_inventory", "add_goals", "add_beliefs"},
			Run:      b.updateCharacterState,
		},
		{
			Name:     "add_lore",
			Required: []string{"content", "type"},
			Optional: []string{"category", "importance", "tags"},
			Run:      b.addLore,
		},
		{
			Name:     "search_world",
			Required: []string{"query"},
			Optional: []string{"kinds", "limit"},
			Run:      b.searchWorld,
		},
	}
	for _, h := range handlers {
		if err := d.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// createCharacter is idempotent on display name: re-running a tick after a
// partial failure returns the already-created character instead of
// duplicating it.
func (b *Builtins) createCharacter(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "name")

	existing, err := b.store.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range existing {
		if score.SameDisplayName(name, ch.DisplayName()) {
			return map[string]any{"id": ch.ID, "existing": true}, nil
		}
	}

	id, err := b.store.GenerateID(ctx, entity.KindCharacter)
	if err != nil {
		return nil, err
	}

	first, family := splitName(name)
	ch := &entity.Character{
		Meta:        entity.Meta{ID: id},
		FirstName:   first,
		FamilyName:  family,
		Role:        stringArg(args, "role"),
		Description: stringArg(args, "description"),
		Backstory:   stringArg(args, "backstory"),
		State: entity.CharacterState{
			LocationID: stringArg(args, "location_id"),
			Emotional:  stringArg(args, "emotional"),
			Physical:   stringArg(args, "physical"),
		},
		History: []entity.ChangeEntry{{
			Tick:          b.tick,
			ChangedFields: []string{"created"},
			Summary:       "created by planner",
		}},
	}
	if err := b.store.SaveCharacter(ctx, ch); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (b *Builtins) createLocation(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "name")

	existing, err := b.store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	for _, loc := range existing {
		if strings.EqualFold(strings.TrimSpace(loc.Name), strings.TrimSpace(name)) {
			return map[string]any{"id": loc.ID, "existing": true}, nil
		}
	}

	id, err := b.store.GenerateID(ctx, entity.KindLocation)
	if err != nil {
		return nil, err
	}
	loc := &entity.Location{
		Meta:         entity.Meta{ID: id},
		Name:         name,
		Description:  stringArg(args, "description"),
		Atmosphere:   stringArg(args, "atmosphere"),
		Significance: stringArg(args, "significance"),
	}
	if err := b.store.SaveLocation(ctx, loc); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

var (
	givenNames  = []string{"Mara", "Edric", "Sable", "Ines", "Corvin", "Thessaly", "Rooke", "Ama", "Leontin", "Vesna"}
	familyNames = []string{"Voss", "Calloway", "Strand", "Marchetti", "Hale", "Okafor", "Brandt", "Silvela", "Quint", "Aldermoor"}
	placeNames  = []string{"The Drowned Library", "Greywater Crossing", "The Lantern Exchange", "Saltmarsh Row", "The Orrery Court", "Hollowgate", "The Cinder Archive", "Pellam's Folly"}
)

// generateName hands the planner a fresh name without a generation-service
// round trip. Selection rotates with the number of entities already
// persisted so consecutive calls vary.
func (b *Builtins) generateName(ctx context.Context, args map[string]any) (map[string]any, error) {
	kind := stringArg(args, "kind")
	seed := 0
	if n, ok := intArg(args, "seed"); ok {
		seed = n
	}

	switch kind {
	case "character":
		ids, err := b.store.ListIDs(ctx, entity.KindCharacter)
		if err != nil {
			return nil, err
		}
		n := len(ids) + seed
		name := fmt.Sprintf("%s %s", givenNames[n%len(givenNames)], familyNames[(n/len(givenNames)+n)%len(familyNames)])
		return map[string]any{"name": name}, nil
	case "location":
		ids, err := b.store.ListIDs(ctx, entity.KindLocation)
		if err != nil {
			return nil, err
		}
		n := len(ids) + seed
		return map[string]any{"name": placeNames[n%len(placeNames)]}, nil
	default:
		return nil, fmt.Errorf("cannot generate a name for kind %q", kind)
	}
}

func (b *Builtins) createRelationship(ctx context.Context, args map[string]any) (map[string]any, error) {
	a := stringArg(args, "character_a")
	c := stringArg(args, "character_b")

	for _, id := range []string{a, c} {
		ch, err := b.store.GetCharacter(ctx, id)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			return nil, fmt.Errorf("character %s does not exist", id)
		}
	}

	if existing, err := b.store.GetRelationshipBetween(ctx, a, c); err != nil {
		return nil, err
	} else if existing != nil {
		return map[string]any{"id": existing.ID, "existing": true}, nil
	}

	id, err := b.store.GenerateID(ctx, entity.KindRelationship)
	if err != nil {
		return nil, err
	}
	rel := &entity.Relationship{
		Meta:         entity.Meta{ID: id},
		CharacterA:   a,
		CharacterB:   c,
		Type:         stringArg(args, "type"),
		Status:       stringArg(args, "status"),
		PerspectiveA: stringArg(args, "perspective_a"),
		PerspectiveB: stringArg(args, "perspective_b"),
	}
	if n, ok := intArg(args, "intensity"); ok {
		rel.Intensity = clampIntensity(n)
	}
	if err := b.store.SaveRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (b *Builtins) updateRelationship(ctx context.Context, args map[string]any) (map[string]any, error) {
	a := stringArg(args, "character_a")
	c := stringArg(args, "character_b")

	rel, err := b.store.GetRelationshipBetween(ctx, a, c)
	if err != nil {
		return nil, err
	}
	if rel == nil {
		return nil, fmt.Errorf("no relationship between %s and %s", a, c)
	}

	statusChange := ""
	if status := stringArg(args, "status"); status != "" && status != rel.Status {
		statusChange = fmt.Sprintf("%s → %s", rel.Status, status)
		rel.Status = status
	}
	if relType := stringArg(args, "type"); relType != "" {
		rel.Type = relType
	}
	if n, ok := intArg(args, "intensity"); ok {
		rel.Intensity = clampIntensity(n)
	}

	event := stringArg(args, "event")
	if event == "" {
		event = "updated by planner"
	}
	rel.History = append(rel.History, entity.RelationshipEvent{
		Tick:         b.tick,
		Event:        event,
		StatusChange: statusChange,
	})

	if err := b.store.SaveRelationship(ctx, rel); err != nil {
		return nil, err
	}
	return map[string]any{"id": rel.ID}, nil
}

func (b *Builtins) addOpenLoop(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := b.store.GenerateID(ctx, entity.KindOpenLoop)
	if err != nil {
		return nil, err
	}
	loop := &entity.OpenLoop{
		Meta:              entity.Meta{ID: id},
		Description:       stringArg(args, "description"),
		Category:          stringArg(args, "category"),
		Importance:        stringArg(args, "importance"),
		Status:            entity.LoopOpen,
		CharacterIDs:      stringListArg(args, "character_ids"),
		LocationIDs:       stringListArg(args, "location_ids"),
		MentionCount:      1,
		LastMentionedTick: b.tick,
	}
	if err := b.store.SaveOpenLoop(ctx, loop); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (b *Builtins) resolveOpenLoop(ctx context.Context, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "loop_id")
	if err := b.store.ResolveOpenLoop(ctx, id, "", stringArg(args, "summary")); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (b *Builtins) updateCharacterState(ctx context.Context, args map[string]any) (map[string]any, error) {
	id := stringArg(args, "character_id")
	ch, err := b.store.GetCharacter(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("character %s does not exist", id)
	}

	if v := stringArg(args, "location_id"); v != "" {
		ch.State.LocationID = v
	}
	if v := stringArg(args, "emotional"); v != "" {
		ch.State.Emotional = v
	}
	if v := stringArg(args, "physical"); v != "" {
		ch.State.Physical = v
	}
	appendUnique(&ch.State.Inventory, stringListArg(args, "add_inventory"))
	appendUnique(&ch.State.Goals, stringListArg(args, "add_goals"))
	appendUnique(&ch.State.Beliefs, stringListArg(args, "add_beliefs"))

	if err := b.store.SaveCharacter(ctx, ch); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (b *Builtins) addLore(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, err := b.store.GenerateID(ctx, entity.KindLore)
	if err != nil {
		return nil, err
	}
	l := &entity.Lore{
		Meta:       entity.Meta{ID: id},
		Type:       entity.LoreType(stringArg(args, "type")),
		Category:   stringArg(args, "category"),
		Content:    stringArg(args, "content"),
		Importance: stringArg(args, "importance"),
		Tags:       stringListArg(args, "tags"),
	}
	if err := b.store.SaveLore(ctx, l); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (b *Builtins) searchWorld(ctx context.Context, args map[string]any) (map[string]any, error) {
	limit := 10
	if n, ok := intArg(args, "limit"); ok {
		limit = n
	}
	var kinds []entity.Kind
	for _, k := range stringListArg(args, "kinds") {
		kinds = append(kinds, entity.Kind(k))
	}

	hits, err := b.index.Search(ctx, stringArg(args, "query"), kinds, limit)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		out = append(out, map[string]any{
			"id":       h.ID,
			"kind":     string(h.Kind),
			"distance": h.Distance,
			"snippet":  h.Snippet,
		})
	}
	return map[string]any{"hits": out}, nil
}

func appendUnique(dst *[]string, items []string) {
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		exists := false
		for _, have := range *dst {
			if strings.EqualFold(have, item) {
				exists = true
				break
			}
		}
		if !exists {
			*dst = append(*dst, item)
		}
	}
}

func splitName(name string) (first, family string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}

func clampIntensity(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}
