package cluster

import (
	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/cluster"
	"github.com/stackvista/es-snapper/internal/config"
)

func Cmd(cliCtx *config.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster health and settings",
	}

	cmd.AddCommand(statusCmd(cliCtx))
	cmd.AddCommand(settingsCmd(cliCtx))
	cmd.AddCommand(setCmd(cliCtx))
	cmd.AddCommand(rebalancingCmd(cliCtx))

	return cmd
}

func newAdmin(session *connect.Session) *cluster.Admin {
	return cluster.NewAdmin(session.Client, session.Log)
}
