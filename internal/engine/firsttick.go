package engine

import (
	"context"
	"fmt"

	"storyloom/internal/actions"
)

// dispatchFirstTick runs the opening tick's two-phase dispatch. The plan
// refers to not-yet-existing entities by "$N" placeholders, so the
// entity-generation operations run first, the placeholders are rewritten
// to the allocated identifiers, and only then does the rest of the list
// execute.
func (e *Engine) dispatchFirstTick(ctx context.Context, t *tickState) error {
	var generation, remaining []actions.Action
	remainingIdx := make([]int, 0, len(t.plan.Actions))
	for i, action := range t.plan.Actions {
		if actions.EntityGenerationOps[action.Name] {
			generation = append(generation, action)
		} else {
			remaining = append(remaining, action)
			remainingIdx = append(remainingIdx, i)
		}
	}

	// Phase one: only entity generation. Placeholders may not appear
	// here; these actions are what the placeholders point at.
	genResults, err := e.disp.Dispatch(ctx, generation)
	t.dispatched = genResults
	if err != nil {
		return fmt.Errorf("entity generation phase: %w", err)
	}

	// Results are indexed by the action's position in the original plan
	// so "$N" resolves against the full list.
	byPlanIndex := make([]map[string]any, len(t.plan.Actions))
	g := 0
	for i, action := range t.plan.Actions {
		if actions.EntityGenerationOps[action.Name] {
			byPlanIndex[i] = genResults[g]
			g++
		}
	}
	for i := range byPlanIndex {
		if byPlanIndex[i] == nil {
			byPlanIndex[i] = map[string]any{}
		}
	}

	if err := t.plan.substitutePlaceholders(byPlanIndex); err != nil {
		return err
	}

	// The POV from the plan becomes the active character once it names a
	// real entity; its record carries the active flag from here on.
	if t.state.ActiveCharacter == "" {
		t.state.ActiveCharacter = t.plan.POVCharacter
		ch, err := e.store.GetCharacter(ctx, t.plan.POVCharacter)
		if err != nil {
			return fmt.Errorf("loading point-of-view character: %w", err)
		}
		if ch != nil && !ch.Active {
			ch.Active = true
			if err := e.store.SaveCharacter(ctx, ch); err != nil {
				return fmt.Errorf("activating %s: %w", ch.ID, err)
			}
		}
	}

	// Phase two: everything else, now placeholder-free. Rebuild from the
	// substituted plan since substitution mutated the action args.
	remaining = remaining[:0]
	for _, i := range remainingIdx {
		remaining = append(remaining, t.plan.Actions[i])
	}
	results, err := e.disp.Dispatch(ctx, remaining)
	t.dispatched = append(t.dispatched, results...)
	return err
}
