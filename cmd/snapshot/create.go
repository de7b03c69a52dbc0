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

type createOptions struct {
	cleanup bool
}

func createCmd(cliCtx *config.Context) *cobra.Command {
	opts := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a snapshot and wait for it to complete",
		Long: `Create a snapshot of all indices and wait until Elasticsearch reports it as
successful. The snapshot repository is created first when it does not exist yet.
With --cleanup, older snapshots beyond --keep are deleted afterwards.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runCreate(cmd, cliCtx, opts); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().BoolVar(&opts.cleanup, "cleanup", false, "Delete old snapshots after a successful snapshot")
	cmd.Flags().IntVar(&cliCtx.Config.Keep, config.FlagKeep, config.DefaultKeep, "Number of most recent snapshots to keep with --cleanup")
	cmd.Flags().StringVar(&cliCtx.Config.Prefix, config.FlagPrefix, "", "Prefix for the generated snapshot name")
	return cmd
}

func runCreate(cmd *cobra.Command, cliCtx *config.Context, opts *createOptions) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	mgr := newManager(session)
	name, err := mgr.Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	fields := []output.Field{
		{Label: "Snapshot", Key: "snapshot", Value: name},
		{Label: "Repository", Key: "repository", Value: mgr.Repository()},
	}

	if opts.cleanup {
		deleted, err := mgr.Cleanup(ctx, session.Config.Keep())
		if err != nil {
			return fmt.Errorf("snapshot %s created, but cleanup failed: %w", name, err)
		}
		fields = append(fields, output.Field{Label: "Deleted", Key: "deleted", Value: snapshotNames(deleted)})
	}

	formatter := output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat)
	return formatter.PrintDetails(fields)
}
