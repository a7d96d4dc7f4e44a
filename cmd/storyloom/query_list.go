package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyloom/internal/entity"
)

func queryListCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities of a kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryList(kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "character", "Entity kind to list")
	return cmd
}

func runQueryList(kind string) error {
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

	type row struct{ id, label string }
	var rows []row

	switch entity.Kind(kind) {
	case entity.KindCharacter:
		items, err := st.ListCharacters(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			label := item.DisplayName()
			if item.Active {
				label += " (active)"
			}
			rows = append(rows, row{item.ID, label})
		}
	case entity.KindLocation:
		items, err := st.ListLocations(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, item.Name})
		}
	case entity.KindScene:
		items, err := st.ListScenes(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("[tick %d] %s", item.Tick, item.Title)})
		}
	case entity.KindRelationship:
		items, err := st.ListRelationships(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("%s <-> %s: %s", item.CharacterA, item.CharacterB, item.Type)})
		}
	case entity.KindOpenLoop:
		items, err := st.ListOpenLoops(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("[%s] %s", item.Status, item.Description)})
		}
	case entity.KindLore:
		items, err := st.ListLore(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("[%s] %s", item.Type, item.Content)})
		}
	case entity.KindFaction:
		items, err := st.ListFactions(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, item.Name})
		}
	case entity.KindPlotBeat:
		items, err := st.ListPlotBeats(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			rows = append(rows, row{item.ID, fmt.Sprintf("[%s] %s", item.Status, item.Description)})
		}
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}

	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "No entities found.")
		return nil
	}
	for _, r := range rows {
		fmt.Fprintf(os.Stdout, "%-12s %s\n", r.id, r.label)
	}
	return nil
}
