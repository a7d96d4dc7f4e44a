package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func tickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one story tick",
		Args:  cobra.NoArgs,
		RunE:  runTick,
	}
	return cmd
}

func runTick(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, st, index, log, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)
	defer index.Close(ctx)
	defer log.Sync()

	res, err := eng.RunTick(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Tick %d committed %s: %q (%d words)\n", res.Tick, res.SceneID, res.Title, res.Words)
	for _, warning := range res.Warnings {
		fmt.Fprintf(os.Stdout, "  warning: %s\n", warning)
	}
	return nil
}
