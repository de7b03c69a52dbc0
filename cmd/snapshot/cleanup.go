package snapshot

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/output"
)

func cleanupCmd(cliCtx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all but the most recent snapshots",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runCleanup(cmd, cliCtx); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().IntVar(&cliCtx.Config.Keep, config.FlagKeep, config.DefaultKeep, "Number of most recent snapshots to keep (0 deletes all)")
	return cmd
}

func runCleanup(cmd *cobra.Command, cliCtx *config.Context) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	deleted, err := newManager(session).Cleanup(ctx, session.Config.Keep())
	formatter := output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat)
	if err != nil {
		// Still report what was deleted before the failure
		if len(deleted) > 0 {
			_ = formatter.PrintTable(snapshotTable(deleted))
		}
		return fmt.Errorf("failed to clean up snapshots: %w", err)
	}
	return formatter.PrintTable(snapshotTable(deleted))
}
