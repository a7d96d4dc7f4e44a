package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyloom/internal/checkpoint"
	"storyloom/internal/logger"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Snapshot and restore the world",
	}
	cmd.AddCommand(checkpointCreateCmd())
	cmd.AddCommand(checkpointListCmd())
	cmd.AddCommand(checkpointRestoreCmd())
	cmd.AddCommand(checkpointCleanupCmd())
	return cmd
}

func openCheckpoints(ctx context.Context) (*checkpoint.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return checkpoint.NewManager(cfg.Store.Path, "checkpoints", log)
}

func checkpointCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Snapshot the world at the current tick",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
				return fmt.Errorf("no state document, run init first")
			}

			mgr, err := openCheckpoints(ctx)
			if err != nil {
				return err
			}
			id, err := mgr.Create(state.CurrentTick)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Created checkpoint %s.\n", id)
			return nil
		},
	}
}

func checkpointListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpoints(context.Background())
			if err != nil {
				return err
			}
			infos, err := mgr.List()
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(os.Stdout, "No checkpoints.")
				return nil
			}
			for _, info := range infos {
				fmt.Fprintf(os.Stdout, "%-24s %s  %d bytes\n",
					info.ID, info.CreatedAt.Format("2006-01-02 15:04:05"), info.Size)
			}
			return nil
		},
	}
}

func checkpointRestoreCmd() *cobra.Command {
	var noBackup bool
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Restore the world from a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpoints(context.Background())
			if err != nil {
				return err
			}
			backupID, err := mgr.Restore(args[0], !noBackup)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Restored %s.\n", args[0])
			if backupID != "" {
				fmt.Fprintf(os.Stdout, "Previous state saved as %s.\n", backupID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the automatic backup of current state")
	return cmd
}

func checkpointCleanupCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Prune old checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := openCheckpoints(context.Background())
			if err != nil {
				return err
			}
			removed, err := mgr.Cleanup(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Removed %d checkpoint(s).\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 5, "Number of newest checkpoints to keep")
	return cmd
}
