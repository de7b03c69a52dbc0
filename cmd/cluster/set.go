package cluster

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/output"
)

type setOptions struct {
	key       string
	value     string
	transient bool
}

func setCmd(cliCtx *config.Context) *cobra.Command {
	opts := &setOptions{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update a cluster setting",
		Long:  `Update a single cluster setting. The value 'null' resets the setting to its default.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runSet(cmd, cliCtx, opts); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&opts.key, "key", "", "Setting to update (required)")
	cmd.Flags().StringVar(&opts.value, "value", "", "New value, or 'null' to reset (required)")
	cmd.Flags().BoolVar(&opts.transient, "transient", false, "Update the transient instead of the persistent setting")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func runSet(cmd *cobra.Command, cliCtx *config.Context, opts *setOptions) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	ack, err := newAdmin(session).Set(ctx, opts.key, opts.value, opts.transient)
	if err != nil {
		return err
	}

	session.Log.Successf("Setting %s updated", opts.key)
	return output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat).PrintRaw(ack)
}
