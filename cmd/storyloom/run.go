package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyloom/internal/checkpoint"
)

func runCmd() *cobra.Command {
	var ticks int
	var checkpointEvery int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run consecutive story ticks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ticks < 1 {
				return fmt.Errorf("--ticks must be at least 1")
			}
			return runLoop(ticks, checkpointEvery)
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 1, "Number of ticks to run")
	cmd.Flags().IntVar(&checkpointEvery, "checkpoint-every", 0, "Snapshot the world every N ticks (0 disables)")
	return cmd
}

func runLoop(ticks, checkpointEvery int) error {
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

	var mgr *checkpoint.Manager
	if checkpointEvery > 0 {
		mgr, err = checkpoint.NewManager(st.Root(), "checkpoints", log)
		if err != nil {
			return err
		}
	}

	for i := 0; i < ticks; i++ {
		res, err := eng.RunTick(ctx)
		if err != nil {
			// Stop on first failure; the failure record names the tick
			// to retry.
			return err
		}
		fmt.Fprintf(os.Stdout, "Tick %d committed %s: %q (%d words)\n", res.Tick, res.SceneID, res.Title, res.Words)

		if mgr != nil && (res.Tick+1)%checkpointEvery == 0 {
			if _, err := mgr.Create(res.Tick + 1); err != nil {
				fmt.Fprintf(os.Stdout, "  checkpoint skipped: %v\n", err)
			}
		}
	}
	return nil
}
