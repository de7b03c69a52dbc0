package cluster

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/cluster"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/output"
)

type rebalancingOptions struct {
	value     string
	transient bool
}

func rebalancingCmd(cliCtx *config.Context) *cobra.Command {
	opts := &rebalancingOptions{}
	cmd := &cobra.Command{
		Use:   "rebalancing",
		Short: "Enable or disable shard allocation",
		Long: `Set cluster.routing.allocation.enable. 'on' and 'off' are shorthands for
'all' and 'none'; 'primaries' and 'new_primaries' are passed through.`,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			_, err := cluster.ParseAllocation(opts.value)
			return err
		},
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runRebalancing(cmd, cliCtx, opts); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&opts.value, "value", "", "on, off, all, primaries, new_primaries or none (required)")
	cmd.Flags().BoolVar(&opts.transient, "transient", true, "Update the transient instead of the persistent setting")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func runRebalancing(cmd *cobra.Command, cliCtx *config.Context, opts *rebalancingOptions) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	ack, err := newAdmin(session).SetAllocation(ctx, opts.value, opts.transient)
	if err != nil {
		return err
	}

	session.Log.Infof("Response from cluster:")
	return output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat).PrintRaw(ack)
}
