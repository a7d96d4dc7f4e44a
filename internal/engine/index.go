package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyloom/internal/entity"
)

// reindex refreshes the search index after the tick's mutations. Worlds
// are small enough that a full pass over the mutable kinds is cheaper and
// more reliable than tracking the exact touched set; upserts are
// idempotent so the pass is also self-healing after a crashed tick.
func (e *Engine) reindex(ctx context.Context, t *tickState) error {
	upsert := func(kind entity.Kind, id, text string, meta map[string]string) {
		if err := e.index.Upsert(ctx, kind, id, text, meta); err != nil {
			e.log.Warn("index upsert failed", zap.String("id", id), zap.Error(err))
		}
	}

	chars, err := e.store.ListCharacters(ctx)
	if err != nil {
		return fmt.Errorf("reindexing characters: %w", err)
	}
	for _, ch := range chars {
		upsert(entity.KindCharacter, ch.ID, characterSearchText(ch), map[string]string{"name": ch.DisplayName()})
	}

	locs, err := e.store.ListLocations(ctx)
	if err != nil {
		return fmt.Errorf("reindexing locations: %w", err)
	}
	for _, loc := range locs {
		upsert(entity.KindLocation, loc.ID, locationSearchText(loc), map[string]string{"name": loc.Name})
	}

	loops, err := e.store.ListOpenLoops(ctx)
	if err != nil {
		return fmt.Errorf("reindexing open loops: %w", err)
	}
	for _, loop := range loops {
		upsert(entity.KindOpenLoop, loop.ID, loop.Description, map[string]string{"status": string(loop.Status)})
	}

	if t.sceneID != "" {
		upsert(entity.KindScene, t.sceneID, sceneSearchText(t), map[string]string{"title": t.plan.SceneTitle})
	}
	return nil
}

func characterSearchText(ch *entity.Character) string {
	parts := []string{ch.DisplayName(), ch.Role, ch.Description, ch.Backstory,
		ch.State.Emotional, strings.Join(ch.State.Goals, " "), strings.Join(ch.State.Beliefs, " ")}
	return joinNonEmpty(parts)
}

func locationSearchText(loc *entity.Location) string {
	parts := []string{loc.Name, strings.Join(loc.Aliases, " "), loc.Description,
		loc.Atmosphere, strings.Join(loc.Features, " "), loc.Significance}
	return joinNonEmpty(parts)
}

func loreSearchText(l *entity.Lore) string {
	return joinNonEmpty([]string{l.Content, l.Category, strings.Join(l.Tags, " ")})
}

func sceneSearchText(t *tickState) string {
	return joinNonEmpty([]string{t.plan.SceneTitle, t.plan.Intention,
		strings.Join(t.plan.Beats, " "), t.prose})
}

func joinNonEmpty(parts []string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
