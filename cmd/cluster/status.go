package cluster

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/output"
)

func statusCmd(cliCtx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cluster health",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runStatus(cmd, cliCtx); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}
}

func runStatus(cmd *cobra.Command, cliCtx *config.Context) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	health, err := newAdmin(session).Status(ctx)
	if err != nil {
		return err
	}

	formatter := output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat)
	return formatter.PrintDetails(healthFields(health))
}

func healthFields(health *elasticsearch.ClusterHealth) []output.Field {
	return []output.Field{
		{Label: "Cluster name", Key: "cluster_name", Value: health.ClusterName},
		{Label: "Cluster status", Key: "status", Value: health.Status},
		{Label: "Num. nodes", Key: "number_of_nodes", Value: health.NumberOfNodes},
		{Label: "Num. data nodes", Key: "number_of_data_nodes", Value: health.NumberOfDataNodes},
		{Label: "Unassigned shards", Key: "unassigned_shards", Value: health.UnassignedShards},
		{Label: "Delayed unassigned shards", Key: "delayed_unassigned_shards", Value: health.DelayedUnassignedShards},
		{Label: "Pending tasks", Key: "number_of_pending_tasks", Value: health.NumberOfPendingTasks},
	}
}
