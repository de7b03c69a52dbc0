package snapshot

import (
	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/snapshot"
)

func Cmd(cliCtx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Create, restore, list and clean up snapshots",
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cliCtx.Config.Repository, config.FlagRepository, config.DefaultRepository, "Name of the snapshot repository")
	flags.StringVar(&cliCtx.Config.Bucket, config.FlagBucket, "", "S3 bucket backing the repository (must exist, needed to create the repository)")
	flags.StringVar(&cliCtx.Config.Region, config.FlagRegion, "", "AWS region of the bucket (needed to create the repository)")

	cmd.AddCommand(createCmd(cliCtx))
	cmd.AddCommand(restoreCmd(cliCtx))
	cmd.AddCommand(listCmd(cliCtx))
	cmd.AddCommand(cleanupCmd(cliCtx))

	return cmd
}

// newManager creates a snapshot manager for the configured repository
func newManager(session *connect.Session) *snapshot.Manager {
	cfg := session.Config
	var opts []snapshot.Option
	if cfg.Repository.Prefix != "" {
		opts = append(opts, snapshot.WithNamePrefix(cfg.Repository.Prefix))
	}

	return snapshot.NewManager(session.Client, snapshot.RepositoryConfig{
		Name:   cfg.Repository.Name,
		Bucket: cfg.Repository.Bucket,
		Region: cfg.Repository.Region,
	}, session.Log, opts...)
}
