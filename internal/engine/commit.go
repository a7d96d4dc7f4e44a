package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"storyloom/internal/entity"
	"storyloom/internal/score"
)

// commit makes the scene durable: a freshly allocated identifier, the
// prose document next to the entity records, and the Scene record itself.
// Identifier allocation reconciles against disk, so retrying a tick that
// crashed after commit allocates a new identifier instead of colliding.
func (e *Engine) commit(ctx context.Context, t *tickState) error {
	sceneID, err := e.store.GenerateID(ctx, entity.KindScene)
	if err != nil {
		return fmt.Errorf("allocating scene identifier: %w", err)
	}
	t.sceneID = sceneID

	prosePath := filepath.Join(e.storeRoot, "scenes", sceneID+".md")
	doc := fmt.Sprintf("# %s\n\n%s\n", t.plan.SceneTitle, t.prose)
	if err := os.WriteFile(prosePath, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing prose document: %w", err)
	}

	level, category := score.TensionScore(t.prose)
	scene := &entity.Scene{
		Meta:            entity.Meta{ID: sceneID},
		Tick:            t.tick,
		Title:           t.plan.SceneTitle,
		POVCharacter:    t.plan.POVCharacter,
		LocationID:      t.plan.Location,
		WordCount:       score.WordCount(t.prose),
		Summary:         t.plan.Beats,
		Present:         t.plan.Characters,
		TensionLevel:    level,
		TensionCategory: category,
	}
	if t.plan.TensionTarget != "" {
		scene.Metadata = map[string]string{"tension_target": t.plan.TensionTarget}
	}
	if err := e.store.SaveScene(ctx, scene); err != nil {
		return fmt.Errorf("saving scene: %w", err)
	}

	if err := e.bumpLoopMentions(ctx, t); err != nil {
		return err
	}
	return e.completePlannedBeat(ctx, t)
}

// bumpLoopMentions counts this scene toward every open loop whose subject
// the prose touches. Mention counts feed goal promotion.
func (e *Engine) bumpLoopMentions(ctx context.Context, t *tickState) error {
	loops, err := e.store.ListOpenLoops(ctx)
	if err != nil {
		return fmt.Errorf("loading open loops: %w", err)
	}
	for _, loop := range loops {
		if loop.Status != entity.LoopOpen {
			continue
		}
		if loop.LastMentionedTick == t.tick {
			// Already counted, e.g. the loop was created this tick or
			// the tick is being retried.
			continue
		}
		if !score.TopicMentioned(t.prose, loop.Description) {
			continue
		}
		loop.MentionCount++
		loop.LastMentionedTick = t.tick
		if err := e.store.SaveOpenLoop(ctx, loop); err != nil {
			return fmt.Errorf("updating loop %s: %w", loop.ID, err)
		}
	}
	return nil
}

// completePlannedBeat links a planned outline beat to the scene that
// satisfied it. A beat identifier that no longer resolves is logged and
// skipped, never fatal.
func (e *Engine) completePlannedBeat(ctx context.Context, t *tickState) error {
	if t.plan.PlotBeatID == "" {
		return nil
	}
	beat, err := e.store.GetPlotBeat(ctx, t.plan.PlotBeatID)
	if err != nil {
		return fmt.Errorf("loading plot beat %s: %w", t.plan.PlotBeatID, err)
	}
	if beat == nil {
		e.log.Warn("plan names an unknown plot beat", zap.String("beat", t.plan.PlotBeatID))
		return nil
	}
	beat.Status = entity.BeatCompleted
	beat.SceneID = t.sceneID
	if err := e.store.SavePlotBeat(ctx, beat); err != nil {
		return fmt.Errorf("completing plot beat %s: %w", beat.ID, err)
	}
	return nil
}
