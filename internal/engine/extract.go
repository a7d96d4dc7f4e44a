package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"storyloom/internal/entity"
	"storyloom/internal/facts"
	"storyloom/internal/gen"
	"storyloom/internal/score"
)

// extractFacts asks the generation service what the scene changed. One
// retry, then the tick degrades to an empty diff rather than failing; the
// scene is already committed and losing one tick's facts is recoverable,
// losing the scene is not.
func (e *Engine) extractFacts(ctx context.Context, t *tickState) error {
	policy := gen.RetryPolicy{Attempts: 1}

	var parsed *facts.SceneFacts
	err := policy.Do(ctx, func(ctx context.Context) error {
		raw, genErr := e.gen.Generate(ctx, e.generate(e.factsPrompt(t), 0))
		if genErr != nil {
			return genErr
		}
		body, exErr := extractJSONObject(raw)
		if exErr != nil {
			return exErr
		}
		var f facts.SceneFacts
		if jsonErr := json.Unmarshal([]byte(body), &f); jsonErr != nil {
			return jsonErr
		}
		parsed = &f
		return nil
	})
	if err != nil {
		e.log.Warn("fact extraction degraded to empty",
			zap.Int("tick", t.tick),
			zap.String("error_kind", gen.ErrorKind(err)),
			zap.Error(err))
		t.sceneFacts = &facts.SceneFacts{}
		return nil
	}
	t.sceneFacts = parsed
	return nil
}

type loreExtraction struct {
	Lore []loreItem `json:"lore"`
}

type loreItem struct {
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Category   string   `json:"category"`
	Importance string   `json:"importance"`
	Tags       []string `json:"tags"`
}

// extractLore records durable world rules the scene introduced and runs
// the lexical contradiction check against lore already indexed. Same
// degrade policy as fact extraction, and the saving loop isolates item
// failures the way the fact applier does: the scene is already committed,
// so one bad lore item is dropped, never allowed to fail the tick.
func (e *Engine) extractLore(ctx context.Context, t *tickState) error {
	policy := gen.RetryPolicy{Attempts: 1}

	var parsed loreExtraction
	err := policy.Do(ctx, func(ctx context.Context) error {
		raw, genErr := e.gen.Generate(ctx, e.generate(e.lorePrompt(t), 0))
		if genErr != nil {
			return genErr
		}
		body, exErr := extractJSONObject(raw)
		if exErr != nil {
			return exErr
		}
		parsed = loreExtraction{}
		return json.Unmarshal([]byte(body), &parsed)
	})
	if err != nil {
		e.log.Warn("lore extraction degraded to empty",
			zap.Int("tick", t.tick),
			zap.String("error_kind", gen.ErrorKind(err)),
			zap.Error(err))
		return nil
	}

	for i, item := range parsed.Lore {
		if item.Content == "" {
			continue
		}
		if err := e.saveLoreItem(ctx, t, item); err != nil {
			e.log.Warn("lore item dropped",
				zap.Int("tick", t.tick),
				zap.Int("index", i),
				zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) saveLoreItem(ctx context.Context, t *tickState, item loreItem) error {
	id, err := e.store.GenerateID(ctx, entity.KindLore)
	if err != nil {
		return fmt.Errorf("allocating lore identifier: %w", err)
	}
	l := &entity.Lore{
		Meta:        entity.Meta{ID: id},
		Type:        entity.LoreType(item.Type),
		Category:    item.Category,
		Content:     item.Content,
		Importance:  item.Importance,
		Tags:        item.Tags,
		SourceScene: t.sceneID,
	}

	matches := e.contradictionMatches(ctx, l)
	for _, m := range matches {
		l.PotentialContradictions = append(l.PotentialContradictions, m.ID)
	}

	if err := e.store.SaveLore(ctx, l); err != nil {
		return fmt.Errorf("saving lore: %w", err)
	}
	if err := e.index.Upsert(ctx, entity.KindLore, id, loreSearchText(l), map[string]string{"category": l.Category}); err != nil {
		e.log.Warn("could not index lore", zap.String("id", id), zap.Error(err))
	}

	// The counterpart side of a contradiction pair is written only after
	// the new record is durable, so a failed save never leaves an existing
	// record pointing at an identifier that was never persisted.
	for _, m := range matches {
		m.PotentialContradictions = appendID(m.PotentialContradictions, l.ID)
		if err := e.store.SaveLore(ctx, m); err != nil {
			e.log.Warn("could not flag contradiction",
				zap.String("existing", m.ID),
				zap.String("new", l.ID),
				zap.Error(err))
		}
	}
	return nil
}

// contradictionMatches searches indexed lore for near matches where the
// category and wording overlap enough to plausibly speak about the same
// rule. Detection is lexical; judgment is left to a human.
func (e *Engine) contradictionMatches(ctx context.Context, l *entity.Lore) []*entity.Lore {
	hits, err := e.index.Search(ctx, l.Content, []entity.Kind{entity.KindLore}, 5)
	if err != nil {
		e.log.Warn("contradiction search failed", zap.Error(err))
		return nil
	}
	var matches []*entity.Lore
	for _, hit := range hits {
		existing, err := e.store.GetLore(ctx, hit.ID)
		if err != nil || existing == nil {
			continue
		}
		if !score.CandidateContradiction(l.Category, l.Content, existing.Category, existing.Content) {
			continue
		}
		matches = append(matches, existing)
		e.log.Info("potential lore contradiction",
			zap.String("new", l.ID), zap.String("existing", existing.ID))
	}
	return matches
}

func appendID(ids []string, id string) []string {
	for _, have := range ids {
		if have == id {
			return ids
		}
	}
	return append(ids, id)
}
