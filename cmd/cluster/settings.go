package cluster

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/output"
)

type settingsOptions struct {
	key             string
	includeDefaults bool
}

func settingsCmd(cliCtx *config.Context) *cobra.Command {
	opts := &settingsOptions{}
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show cluster settings",
		Long: `Show the persistent and transient cluster settings as flat keys. With --key
a single setting is looked up in the transient, persistent and default settings,
in that order.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runSettings(cmd, cliCtx, opts); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&opts.key, "key", "", "Show a single setting, e.g. cluster.routing.allocation.enable")
	cmd.Flags().BoolVar(&opts.includeDefaults, "include-defaults", false, "Include default settings")
	return cmd
}

func runSettings(cmd *cobra.Command, cliCtx *config.Context, opts *settingsOptions) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	admin := newAdmin(session)
	formatter := output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat)

	if opts.key != "" {
		setting, err := admin.Setting(ctx, opts.key)
		if err != nil {
			return err
		}
		return formatter.PrintDetails([]output.Field{
			{Label: "Key", Key: "key", Value: setting.Key},
			{Label: "Value", Key: "value", Value: setting.Value},
			{Label: "Scope", Key: "scope", Value: setting.Scope},
		})
	}

	settings, err := admin.Settings(ctx, opts.includeDefaults)
	if err != nil {
		return err
	}
	return formatter.PrintRaw(settings)
}
