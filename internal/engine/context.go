package engine

import (
	"context"
	"fmt"
	"strings"

	"storyloom/internal/entity"
)

// buildContext assembles the world summary every prompt this tick shares:
// the story foundation, the active character and their relationships, the
// most recent scenes, and the unresolved loops.
func (e *Engine) buildContext(ctx context.Context, t *tickState) error {
	var b strings.Builder

	f := t.state.Foundation
	if f.Premise != "" {
		fmt.Fprintf(&b, "Premise: %s\n", f.Premise)
	}
	if f.UserStoryGoal != "" {
		fmt.Fprintf(&b, "Story goal: %s\n", f.UserStoryGoal)
	}
	for _, goalID := range t.state.StoryGoals {
		if loop, err := e.store.GetOpenLoop(ctx, goalID); err == nil && loop != nil {
			fmt.Fprintf(&b, "Story goal: %s\n", loop.Description)
		}
	}

	if t.state.ActiveCharacter != "" {
		ch, err := e.store.GetCharacter(ctx, t.state.ActiveCharacter)
		if err != nil {
			return fmt.Errorf("loading active character: %w", err)
		}
		if ch != nil {
			fmt.Fprintf(&b, "\nPoint of view: %s (%s)\n", ch.DisplayName(), ch.ID)
			if ch.State.Emotional != "" {
				fmt.Fprintf(&b, "  feeling: %s\n", ch.State.Emotional)
			}
			if ch.State.LocationID != "" {
				if loc, err := e.store.GetLocation(ctx, ch.State.LocationID); err == nil && loc != nil {
					fmt.Fprintf(&b, "  at: %s\n", loc.Name)
				}
			}
			if len(ch.State.Goals) > 0 {
				fmt.Fprintf(&b, "  goals: %s\n", strings.Join(ch.State.Goals, "; "))
			}

			rels, err := e.store.ListRelationships(ctx)
			if err != nil {
				return fmt.Errorf("loading relationships: %w", err)
			}
			for _, rel := range rels {
				if !rel.Involves(ch.ID) {
					continue
				}
				other, err := e.store.GetCharacter(ctx, rel.Other(ch.ID))
				if err != nil || other == nil {
					continue
				}
				fmt.Fprintf(&b, "  knows %s (%s): %s", other.DisplayName(), other.ID, rel.Type)
				if rel.Status != "" {
					fmt.Fprintf(&b, ", %s", rel.Status)
				}
				b.WriteString("\n")
			}
		}
	}

	scenes, err := e.store.ListScenes(ctx)
	if err != nil {
		return fmt.Errorf("loading scenes: %w", err)
	}
	if len(scenes) > 0 {
		b.WriteString("\nRecent scenes:\n")
		start := len(scenes) - 3
		if start < 0 {
			start = 0
		}
		for _, sc := range scenes[start:] {
			fmt.Fprintf(&b, "  [%d] %s", sc.Tick, sc.Title)
			if len(sc.Summary) > 0 {
				fmt.Fprintf(&b, ": %s", strings.Join(sc.Summary, "; "))
			}
			b.WriteString("\n")
		}
	}

	loops, err := e.store.ListOpenLoops(ctx)
	if err != nil {
		return fmt.Errorf("loading open loops: %w", err)
	}
	var open []string
	for _, loop := range loops {
		if loop.Status == entity.LoopOpen {
			marker := ""
			if loop.IsStoryGoal {
				marker = " [story goal]"
			}
			open = append(open, fmt.Sprintf("  %s: %s%s", loop.ID, loop.Description, marker))
		}
	}
	if len(open) > 0 {
		b.WriteString("\nUnresolved threads:\n")
		b.WriteString(strings.Join(open, "\n"))
		b.WriteString("\n")
	}

	t.worldContext = b.String()
	return nil
}
