package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"storyloom/internal/engine"
	"storyloom/internal/entity"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize the story's current state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	state, err := st.LoadState(ctx)
	if err != nil {
		return err
	}
	if state == nil {
		fmt.Fprintln(os.Stdout, "No state document. Run `storyloom init` first.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "Project: %s\n", cfg.Project)
	fmt.Fprintf(os.Stdout, "Current tick: %d\n", state.CurrentTick)
	if state.ActiveCharacter != "" {
		line := state.ActiveCharacter
		if ch, err := st.GetCharacter(ctx, state.ActiveCharacter); err == nil && ch != nil {
			line = fmt.Sprintf("%s (%s)", ch.DisplayName(), ch.ID)
		}
		fmt.Fprintf(os.Stdout, "Point of view: %s\n", line)
	}
	if state.Foundation.Premise != "" {
		fmt.Fprintf(os.Stdout, "Premise: %s\n", state.Foundation.Premise)
	}
	switch {
	case state.Foundation.UserStoryGoal != "":
		fmt.Fprintf(os.Stdout, "Story goal: %s (user-specified)\n", state.Foundation.UserStoryGoal)
	case len(state.StoryGoals) > 0:
		for _, goalID := range state.StoryGoals {
			line := goalID
			if loop, err := st.GetOpenLoop(ctx, goalID); err == nil && loop != nil {
				line = fmt.Sprintf("%s (%s)", loop.Description, goalID)
			}
			fmt.Fprintf(os.Stdout, "Story goal: %s\n", line)
		}
	default:
		fmt.Fprintln(os.Stdout, "Story goal: none yet")
	}

	fmt.Fprintln(os.Stdout, "Entities:")
	for _, kind := range entity.Kinds {
		ids, err := st.ListIDs(ctx, kind)
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			fmt.Fprintf(os.Stdout, "  %-12s %d\n", string(kind), len(ids))
		}
	}

	loops, err := st.ListOpenLoops(ctx)
	if err != nil {
		return err
	}
	open := 0
	for _, loop := range loops {
		if loop.Status == entity.LoopOpen {
			open++
		}
	}
	fmt.Fprintf(os.Stdout, "Unresolved threads: %d\n", open)

	printLastFailure(state.CurrentTick)
	return nil
}

// printLastFailure reports a pending failure record for the current tick,
// if one exists from an earlier crashed or failed run.
func printLastFailure(tick int) {
	data, err := os.ReadFile(filepath.Join("failures", fmt.Sprintf("tick_%d.json", tick)))
	if err != nil {
		return
	}
	var rec engine.FailureRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return
	}
	fmt.Fprintf(os.Stdout, "Last failure (tick %d, %s): %s\n",
		rec.Tick, rec.Error.Kind, rec.Error.Message)
}
