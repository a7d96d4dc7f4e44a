package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storyloom/internal/facts"
	"storyloom/internal/gen"
	"storyloom/internal/score"
	"storyloom/internal/store"
)

// Stage names, in execution order. The order is fixed; there is no
// user-programmable pipeline.
const (
	StageContext      = "context"
	StagePlan         = "plan"
	StageValidate     = "validate"
	StageDispatch     = "dispatch"
	StageProse        = "prose"
	StageEvaluate     = "evaluate"
	StageCommit       = "commit"
	StageExtractFacts = "extract_facts"
	StageApplyFacts   = "apply_facts"
	StageReindex      = "reindex"
	StageExtractLore  = "extract_lore"
	StagePromotion    = "goal_promotion"
	StageAdvance      = "advance"
)

// tickState accumulates what each stage produces for the stages after it.
type tickState struct {
	tick  int
	state *store.State

	worldContext string
	plan         *Plan
	dispatched   []map[string]any
	prose        string
	evaluation   score.Evaluation
	sceneID      string
	sceneFacts   *facts.SceneFacts
	applied      *facts.Result

	completedStages []string
}

// TickResult summarizes a successful tick.
type TickResult struct {
	Tick     int
	SceneID  string
	Title    string
	Words    int
	Warnings []string
}

// RunTick executes one full tick. On any stage failure the tick counter is
// left untouched and a structured failure record is written; the next run
// retries the same tick.
func (e *Engine) RunTick(ctx context.Context) (*TickResult, error) {
	state, err := e.store.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading engine state: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("project has no state document, run init first")
	}

	t := &tickState{tick: state.CurrentTick, state: state}
	e.builtins.SetTick(t.tick)
	log := e.log.With(zap.Int("tick", t.tick))
	log.Info("tick started")

	stages := []struct {
		name string
		run  func(context.Context, *tickState) error
	}{
		{StageContext, e.buildContext},
		{StagePlan, e.makePlan},
		{StageValidate, e.validatePlan},
		{StageDispatch, e.dispatch},
		{StageProse, e.writeProse},
		{StageEvaluate, e.evaluate},
		{StageCommit, e.commit},
		{StageExtractFacts, e.extractFacts},
		{StageApplyFacts, e.applyFacts},
		{StageReindex, e.reindex},
		{StageExtractLore, e.extractLore},
		{StagePromotion, e.goalPromotionCheck},
		{StageAdvance, e.advance},
	}

	for _, s := range stages {
		if err := s.run(ctx, t); err != nil {
			log.Error("tick failed", zap.String("stage", s.name),
				zap.String("error_kind", gen.ErrorKind(err)), zap.Error(err))
			if recErr := e.writeFailureRecord(t, s.name, err); recErr != nil {
				log.Error("could not persist failure record", zap.Error(recErr))
			}
			return nil, fmt.Errorf("tick %d failed in %s: %w", t.tick, s.name, err)
		}
		t.completedStages = append(t.completedStages, s.name)
		log.Debug("stage completed", zap.String("stage", s.name))
	}

	log.Info("tick committed",
		zap.String("scene", t.sceneID),
		zap.Int("words", score.WordCount(t.prose)))
	return &TickResult{
		Tick:     t.tick,
		SceneID:  t.sceneID,
		Title:    t.plan.SceneTitle,
		Words:    score.WordCount(t.prose),
		Warnings: t.evaluation.Warnings,
	}, nil
}

// makePlan asks the generation service for the next scene's plan. Planning
// is the one stage that retries with backoff; a flaky provider should not
// kill a run at its very first step.
func (e *Engine) makePlan(ctx context.Context, t *tickState) error {
	policy := gen.RetryPolicy{Attempts: 2, Backoff: 2 * e.cfg.GenerationTimeout() / 10}

	var raw string
	err := policy.Do(ctx, func(ctx context.Context) error {
		var genErr error
		raw, genErr = e.gen.Generate(ctx, e.generate(e.planPrompt(t), 0))
		return genErr
	})
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	plan, err := ParsePlan(raw)
	if err != nil {
		return err
	}
	t.plan = plan
	return nil
}

// validatePlan checks the plan's shape and every action's parameter
// contract before anything executes.
func (e *Engine) validatePlan(ctx context.Context, t *tickState) error {
	if err := t.plan.validate(); err != nil {
		return err
	}
	if t.tick > 0 && isPlaceholder(t.plan.POVCharacter) {
		return fmt.Errorf("placeholder identifiers are only valid on the first tick")
	}
	if err := e.disp.Validate(t.plan.Actions); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}
	return nil
}

func (e *Engine) dispatch(ctx context.Context, t *tickState) error {
	if t.tick == 0 {
		return e.dispatchFirstTick(ctx, t)
	}
	results, err := e.disp.Dispatch(ctx, t.plan.Actions)
	t.dispatched = results
	return err
}

func (e *Engine) writeProse(ctx context.Context, t *tickState) error {
	// Prose generation does not retry: a slow or failing provider fails
	// the tick rather than doubling the longest call in the pipeline.
	prose, err := e.gen.Generate(ctx, e.generate(e.prosePrompt(t), 0))
	if err != nil {
		return fmt.Errorf("generating prose: %w", err)
	}
	t.prose = prose
	return nil
}

func (e *Engine) evaluate(ctx context.Context, t *tickState) error {
	t.evaluation = score.EvaluateScene(t.prose, e.cfg.Story.SceneMinWords, t.plan.Characters)
	for _, w := range t.evaluation.Warnings {
		e.log.Warn("scene warning", zap.Int("tick", t.tick), zap.String("warning", w))
	}
	if t.evaluation.Failed() {
		return fmt.Errorf("scene rejected: %s", t.evaluation.Failures[0])
	}
	return nil
}

func (e *Engine) applyFacts(ctx context.Context, t *tickState) error {
	if t.sceneFacts.Empty() {
		t.applied = &facts.Result{}
		return nil
	}
	t.applied = e.applier.Apply(ctx, t.tick, t.sceneID, t.state.ActiveCharacter, t.sceneFacts)
	if t.applied.NewPOVCharacterID != "" {
		// A silent POV switch forked a new character; it becomes the
		// active one from the next tick on. The fork left the superseded
		// record's fields alone, so handing the flag over is the only
		// write it takes.
		e.log.Info("point of view switched",
			zap.String("from", t.state.ActiveCharacter),
			zap.String("to", t.applied.NewPOVCharacterID))
		if old, err := e.store.GetCharacter(ctx, t.state.ActiveCharacter); err == nil && old != nil && old.Active {
			old.Active = false
			if err := e.store.SaveCharacter(ctx, old); err != nil {
				e.log.Warn("could not deactivate previous point of view",
					zap.String("character", old.ID), zap.Error(err))
			}
		}
		t.state.ActiveCharacter = t.applied.NewPOVCharacterID
	}
	return nil
}

func (e *Engine) advance(ctx context.Context, t *tickState) error {
	t.state.CurrentTick = t.tick + 1
	if err := e.store.SaveState(ctx, t.state); err != nil {
		return fmt.Errorf("advancing tick counter: %w", err)
	}
	return nil
}
