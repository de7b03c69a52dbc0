package snapshot

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/snapshot"
)

func restoreCmd(cliCtx *config.Context) *cobra.Command {
	opts := &snapshot.RestoreOptions{}
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore a snapshot",
		Long: `Restore the latest or a named snapshot. All indices contained in the snapshot
are closed first; indices that do not exist are skipped. Afterwards the command
waits until the cluster reaches the health given by --wait-for.`,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return snapshot.ValidateWaitFor(opts.WaitFor)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runRestore(cmd, cliCtx, *opts); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&opts.Name, "snapshot", snapshot.Latest, "Snapshot to restore, or 'latest'")
	cmd.Flags().StringVar(&opts.Name, "name", snapshot.Latest, "Alias for --snapshot")
	cmd.Flags().StringVar(&opts.WaitFor, "wait-for", elasticsearch.HealthGreen, "Cluster health to wait for after the restore started (red, yellow, green)")
	cmd.Flags().BoolVar(&opts.IgnoreMissing, "ignore-missing", false, "Succeed without restoring when the snapshot does not exist")
	return cmd
}

func runRestore(cmd *cobra.Command, cliCtx *config.Context, opts snapshot.RestoreOptions) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := newManager(session).Restore(ctx, opts); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return nil
}
