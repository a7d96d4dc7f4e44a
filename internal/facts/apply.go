package facts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyloom/internal/entity"
	"storyloom/internal/score"
	"storyloom/internal/store"
)

type Outcome string

const (
	OutcomeUpdated Outcome = "updated"
	OutcomeCreated Outcome = "created"
	OutcomeNoOp    Outcome = "noop"
)

type Applier struct {
	store store.Store
	log   *zap.Logger
}

func NewApplier(st store.Store, log *zap.Logger) *Applier {
	return &Applier{store: st, log: log}
}

// Apply walks every proposed change and mutates the store. Item failures
// are isolated: each is logged and the loop continues, so one bad item
// never blocks unrelated changes. Apply itself does not fail.
func (a *Applier) Apply(ctx context.Context, tick int, sceneID, povCharacterID string, f *SceneFacts) *Result {
	res := &Result{}
	if f == nil {
		return res
	}

	for i, cf := range f.Characters {
		outcome, createdID, err := a.applyCharacter(ctx, tick, sceneID, povCharacterID, f.POVName, cf)
		if err != nil {
			a.log.Warn("character change dropped",
				zap.Int("index", i),
				zap.String("character_id", cf.CharacterID),
				zap.Error(err))
			continue
		}
		switch outcome {
		case OutcomeUpdated:
			res.CharactersUpdated++
		case OutcomeCreated:
			res.CharactersCreated++
			if createdID != "" && cf.CharacterID == povCharacterID && povCharacterID != "" {
				res.NewPOVCharacterID = createdID
			}
		}
	}

	for i, lf := range f.Locations {
		outcome, err := a.applyLocation(ctx, tick, sceneID, lf)
		if err != nil {
			a.log.Warn("location change dropped",
				zap.Int("index", i),
				zap.String("location_id", lf.LocationID),
				zap.Error(err))
			continue
		}
		if outcome == OutcomeUpdated {
			res.LocationsUpdated++
		}
	}

	for i, rf := range f.Relationships {
		applied, err := a.applyRelationship(ctx, tick, sceneID, rf)
		if err != nil {
			a.log.Warn("relationship change dropped",
				zap.Int("index", i),
				zap.String("character_a", rf.CharacterA),
				zap.String("character_b", rf.CharacterB),
				zap.Error(err))
			continue
		}
		if applied {
			res.RelationshipsUpdated++
		}
	}

	for i, nl := range f.NewLoops {
		if err := a.createLoop(ctx, tick, nl); err != nil {
			a.log.Warn("open loop dropped", zap.Int("index", i), zap.Error(err))
			continue
		}
		res.LoopsCreated++
	}

	for i, lr := range f.Resolutions {
		if err := a.store.ResolveOpenLoop(ctx, lr.LoopID, sceneID, lr.Summary); err != nil {
			a.log.Warn("loop resolution dropped",
				zap.Int("index", i),
				zap.String("loop_id", lr.LoopID),
				zap.Error(err))
			continue
		}
		res.LoopsResolved++
	}

	return res
}

func (a *Applier) applyCharacter(ctx context.Context, tick int, sceneID, povID, povName string, cf CharacterFacts) (Outcome, string, error) {
	var ch *entity.Character
	var err error

	switch {
	case cf.CharacterID != "":
		ch, err = a.store.GetCharacter(ctx, cf.CharacterID)
		if err != nil {
			return OutcomeNoOp, "", err
		}
	case cf.Name != "":
		ch, err = a.findCharacterByName(ctx, cf.Name)
		if err != nil {
			return OutcomeNoOp, "", err
		}
	default:
		return OutcomeNoOp, "", fmt.Errorf("character change has no target")
	}

	// A POV name that disagrees with the stored record means the story
	// switched point of view without updating the identifier. Overwriting
	// here would corrupt an unrelated character's history, so fork a new
	// character instead and leave the stored one untouched.
	if ch != nil && cf.CharacterID == povID && povID != "" && povName != "" {
		if !score.SameDisplayName(povName, ch.DisplayName()) {
			id, err := a.forkCharacter(ctx, tick, sceneID, povName, ch.DisplayName(), cf)
			if err != nil {
				return OutcomeNoOp, "", err
			}
			return OutcomeCreated, id, nil
		}
	}

	if ch == nil {
		id, err := a.createCharacter(ctx, tick, sceneID, cf)
		if err != nil {
			return OutcomeNoOp, "", err
		}
		return OutcomeCreated, id, nil
	}

	return a.updateCharacter(ctx, tick, sceneID, ch, cf)
}

func (a *Applier) updateCharacter(ctx context.Context, tick int, sceneID string, ch *entity.Character, cf CharacterFacts) (Outcome, string, error) {
	var changed []string
	var notes []string

	replace := func(field string, dst *string, proposed string) {
		if proposed == "" || proposed == *dst {
			return
		}
		notes = append(notes, fmt.Sprintf("%s: %q → %q", field, *dst, proposed))
		*dst = proposed
		changed = append(changed, field)
	}
	replace("location", &ch.State.LocationID, cf.LocationID)
	replace("emotional", &ch.State.Emotional, cf.Emotional)
	replace("physical", &ch.State.Physical, cf.Physical)

	appendList := func(field string, dst *[]string, proposed []string) {
		delta := unionAppend(dst, proposed)
		if len(delta) == 0 {
			return
		}
		notes = append(notes, fmt.Sprintf("%s += %s", field, strings.Join(delta, ", ")))
		changed = append(changed, field)
	}
	appendList("inventory", &ch.State.Inventory, cf.Inventory)
	appendList("goals", &ch.State.Goals, cf.Goals)
	appendList("beliefs", &ch.State.Beliefs, cf.Beliefs)

	if len(changed) == 0 {
		return OutcomeNoOp, "", nil
	}

	summary := cf.Summary
	if summary == "" {
		summary = strings.Join(notes, "; ")
	}
	ch.History = append(ch.History, entity.ChangeEntry{
		Tick:          tick,
		SceneID:       sceneID,
		ChangedFields: changed,
		Summary:       summary,
	})

	if err := a.store.SaveCharacter(ctx, ch); err != nil {
		return OutcomeNoOp, "", err
	}
	return OutcomeUpdated, "", nil
}

func (a *Applier) createCharacter(ctx context.Context, tick int, sceneID string, cf CharacterFacts) (string, error) {
	if cf.Name == "" {
		return "", fmt.Errorf("character %s not found and no name to create from", cf.CharacterID)
	}
	return a.seedCharacter(ctx, tick, sceneID, cf.Name, cf, false, fmt.Sprintf("introduced as %q", cf.Name))
}

func (a *Applier) forkCharacter(ctx context.Context, tick int, sceneID, povName, oldName string, cf CharacterFacts) (string, error) {
	id, err := a.seedCharacter(ctx, tick, sceneID, povName, cf, true,
		fmt.Sprintf("created on POV switch away from %q", oldName))
	if err != nil {
		return "", err
	}
	a.log.Info("pov switch detected, forked new character",
		zap.String("stored_name", oldName),
		zap.String("pov_name", povName),
		zap.String("new_character_id", id))
	return id, nil
}

func (a *Applier) seedCharacter(ctx context.Context, tick int, sceneID, name string, cf CharacterFacts, active bool, note string) (string, error) {
	id, err := a.store.GenerateID(ctx, entity.KindCharacter)
	if err != nil {
		return "", err
	}

	first, family := splitName(name)
	ch := &entity.Character{
		Meta:       entity.Meta{ID: id},
		FirstName:  first,
		FamilyName: family,
		Active:     active,
		State: entity.CharacterState{
			LocationID: cf.LocationID,
			Emotional:  cf.Emotional,
			Physical:   cf.Physical,
			Inventory:  append([]string(nil), cf.Inventory...),
			Goals:      append([]string(nil), cf.Goals...),
			Beliefs:    append([]string(nil), cf.Beliefs...),
		},
		History: []entity.ChangeEntry{{
			Tick:          tick,
			SceneID:       sceneID,
			ChangedFields: []string{"created"},
			Summary:       note,
		}},
	}
	if err := a.store.SaveCharacter(ctx, ch); err != nil {
		return "", err
	}
	return id, nil
}

func (a *Applier) applyLocation(ctx context.Context, tick int, sceneID string, lf LocationFacts) (Outcome, error) {
	if lf.LocationID == "" {
		return OutcomeNoOp, fmt.Errorf("location change has no target")
	}
	loc, err := a.store.GetLocation(ctx, lf.LocationID)
	if err != nil {
		return OutcomeNoOp, err
	}
	if loc == nil {
		return OutcomeNoOp, fmt.Errorf("location %s not found", lf.LocationID)
	}

	var changed []string
	var notes []string

	replace := func(field string, dst *string, proposed string) {
		if proposed == "" || proposed == *dst {
			return
		}
		notes = append(notes, fmt.Sprintf("%s: %q → %q", field, *dst, proposed))
		*dst = proposed
		changed = append(changed, field)
	}
	replace("description", &loc.Description, lf.Description)
	replace("atmosphere", &loc.Atmosphere, lf.Atmosphere)
	replace("significance", &loc.Significance, lf.Significance)

	if delta := unionAppend(&loc.Features, lf.Features); len(delta) > 0 {
		notes = append(notes, fmt.Sprintf("features += %s", strings.Join(delta, ", ")))
		changed = append(changed, "features")
	}

	if len(changed) == 0 {
		return OutcomeNoOp, nil
	}

	summary := lf.Summary
	if summary == "" {
		summary = strings.Join(notes, "; ")
	}
	loc.History = append(loc.History, entity.ChangeEntry{
		Tick:          tick,
		SceneID:       sceneID,
		ChangedFields: changed,
		Summary:       summary,
	})

	if err := a.store.SaveLocation(ctx, loc); err != nil {
		return OutcomeNoOp, err
	}
	return OutcomeUpdated, nil
}

func (a *Applier) applyRelationship(ctx context.Context, tick int, sceneID string, rf RelationshipFacts) (bool, error) {
	if rf.CharacterA == "" || rf.CharacterB == "" {
		return false, fmt.Errorf("relationship change must reference two characters")
	}

	// Both sides must already exist; a half-resolvable change is dropped
	// whole, never partially applied.
	for _, id := range []string{rf.CharacterA, rf.CharacterB} {
		ch, err := a.store.GetCharacter(ctx, id)
		if err != nil {
			return false, err
		}
		if ch == nil {
			return false, fmt.Errorf("character %s does not exist", id)
		}
	}

	rel, err := a.store.GetRelationshipBetween(ctx, rf.CharacterA, rf.CharacterB)
	if err != nil {
		return false, err
	}

	if rel == nil {
		id, err := a.store.GenerateID(ctx, entity.KindRelationship)
		if err != nil {
			return false, err
		}
		rel = &entity.Relationship{
			Meta:       entity.Meta{ID: id},
			CharacterA: rf.CharacterA,
			CharacterB: rf.CharacterB,
			Type:       rf.Type,
			Status:     rf.Status,
		}
	}

	statusChange := ""
	if rf.Status != "" && rf.Status != rel.Status {
		statusChange = fmt.Sprintf("%s → %s", rel.Status, rf.Status)
		rel.Status = rf.Status
	}
	if rf.Type != "" {
		rel.Type = rf.Type
	}
	if rf.Intensity != nil {
		rel.Intensity = clampIntensity(*rf.Intensity)
	}
	if rf.PerspectiveA != "" {
		rel.PerspectiveA = rf.PerspectiveA
	}
	if rf.PerspectiveB != "" {
		rel.PerspectiveB = rf.PerspectiveB
	}

	event := rf.Event
	if event == "" {
		event = "relationship noted"
	}
	rel.History = append(rel.History, entity.RelationshipEvent{
		Tick:         tick,
		SceneID:      sceneID,
		Event:        event,
		StatusChange: statusChange,
	})

	if err := a.store.SaveRelationship(ctx, rel); err != nil {
		return false, err
	}
	return true, nil
}

func (a *Applier) createLoop(ctx context.Context, tick int, nl NewLoop) error {
	if strings.TrimSpace(nl.Description) == "" {
		return fmt.Errorf("open loop has no description")
	}
	id, err := a.store.GenerateID(ctx, entity.KindOpenLoop)
	if err != nil {
		return err
	}
	return a.store.SaveOpenLoop(ctx, &entity.OpenLoop{
		Meta:              entity.Meta{ID: id},
		Description:       nl.Description,
		Category:          nl.Category,
		Importance:        nl.Importance,
		Status:            entity.LoopOpen,
		CharacterIDs:      append([]string(nil), nl.CharacterIDs...),
		LocationIDs:       append([]string(nil), nl.LocationIDs...),
		MentionCount:      1,
		LastMentionedTick: tick,
	})
}

func (a *Applier) findCharacterByName(ctx context.Context, name string) (*entity.Character, error) {
	all, err := a.store.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}
	for _, ch := range all {
		if score.SameDisplayName(name, ch.DisplayName()) {
			return ch, nil
		}
	}
	return nil, nil
}

// unionAppend adds only genuinely new items and returns the delta.
func unionAppend(dst *[]string, proposed []string) []string {
	var delta []string
	for _, item := range proposed {
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
			delta = append(delta, item)
		}
	}
	return delta
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
