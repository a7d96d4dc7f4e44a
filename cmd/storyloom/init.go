package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storyloom/internal/store"
	"storyloom/internal/store/fs"
)

func initCmd() *cobra.Command {
	var projectName string
	var premise string
	var protagonist string
	var storyGoal string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new storyloom project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(projectName, premise, protagonist, storyGoal)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&premise, "premise", "", "Story premise")
	cmd.Flags().StringVar(&protagonist, "protagonist", "", "Protagonist name")
	cmd.Flags().StringVar(&storyGoal, "goal", "", "Primary story goal (disables automatic goal promotion)")
	return cmd
}

func runInit(projectName, premise, protagonist, storyGoal string) error {
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("%s already exists", configFile)
	}

	configContents := fmt.Sprintf(`project: %s
version: 1

store:
  path: world

generation:
  model: gpt-4o
  api_key_env: OPENAI_API_KEY
  max_tokens: 2000
  timeout: 90s

search:
  dsn: sqlite://worldindex.db

story:
  scene_min_words: 300

logging:
  level: info
`, projectName)
	if err := os.WriteFile(configFile, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configFile, err)
	}

	st, err := fs.New("world")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	state := &store.State{
		CurrentTick: 0,
		Foundation: store.Foundation{
			Premise:       premise,
			Protagonist:   protagonist,
			UserStoryGoal: storyGoal,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.SaveState(context.Background(), state); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Initialized project %q. Run `storyloom tick` to generate the opening scene.\n", projectName)
	return nil
}
