package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storyloom/internal/entity"
)

func querySearchCmd() *cobra.Command {
	var kinds []string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the world by text similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySearch(strings.Join(args, " "), kinds, limit)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Entity kinds to search (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	return cmd
}

func runQuerySearch(query string, kindNames []string, limit int) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	index, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer index.Close(ctx)

	var kinds []entity.Kind
	for _, name := range kindNames {
		kinds = append(kinds, entity.Kind(name))
	}

	hits, err := index.Search(ctx, query, kinds, limit)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(os.Stdout, "No results.")
		return nil
	}
	for _, hit := range hits {
		fmt.Fprintf(os.Stdout, "%-12s %-12s %.3f", hit.ID, string(hit.Kind), hit.Distance)
		if hit.Snippet != "" {
			fmt.Fprintf(os.Stdout, "  %s", hit.Snippet)
		}
		fmt.Fprintln(os.Stdout)
	}
	return nil
}
