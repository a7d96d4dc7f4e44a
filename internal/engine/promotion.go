package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storyloom/internal/entity"
)

// goalPromotionCheck elevates an organically grown narrative thread to the
// primary story goal. It only fires inside the configured tick window,
// only while no goal exists yet, and never when the user supplied one.
// Among open loops referencing the protagonist, the most-mentioned wins,
// and only with enough scene mentions to prove the story keeps coming
// back to it.
func (e *Engine) goalPromotionCheck(ctx context.Context, t *tickState) error {
	if t.tick < e.cfg.Promotion.WindowStart || t.tick > e.cfg.Promotion.WindowEnd {
		return nil
	}
	if t.state.HasStoryGoal() {
		return nil
	}
	if t.state.ActiveCharacter == "" {
		return nil
	}

	loops, err := e.store.ListOpenLoops(ctx)
	if err != nil {
		return fmt.Errorf("loading open loops: %w", err)
	}

	var best *entity.OpenLoop
	for _, loop := range loops {
		if loop.Status != entity.LoopOpen || !loop.References(t.state.ActiveCharacter) {
			continue
		}
		if best == nil || loop.MentionCount > best.MentionCount {
			best = loop
		}
	}
	if best == nil || best.MentionCount < e.cfg.Promotion.MinMentions {
		return nil
	}

	best.IsStoryGoal = true
	if err := e.store.SaveOpenLoop(ctx, best); err != nil {
		return fmt.Errorf("promoting loop %s: %w", best.ID, err)
	}
	t.state.StoryGoals = append(t.state.StoryGoals, best.ID)

	e.log.Info("open loop promoted to story goal",
		zap.String("loop", best.ID),
		zap.Int("mentions", best.MentionCount),
		zap.Int("tick", t.tick))
	return nil
}
