package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/cluster"
	"github.com/stackvista/es-snapper/cmd/snapshot"
	"github.com/stackvista/es-snapper/internal/config"
)

var (
	cliCtx *config.Context
)

// addGlobalFlags adds the connection, configuration source and output flags
// shared by all commands
func addGlobalFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&cliCtx.Config.URL, config.FlagURL, "", "URL of the Elasticsearch cluster (env "+config.EnvURL+")")
	flags.StringVar(&cliCtx.Config.Username, config.FlagUser, "", "HTTP basic auth user (env "+config.EnvUser+")")
	flags.StringVar(&cliCtx.Config.Password, config.FlagPassword, "", "HTTP basic auth password (env "+config.EnvPassword+")")
	flags.StringVar(&cliCtx.Config.CACertFile, config.FlagCACert, "", "Path to a PEM encoded CA certificate for TLS")
	flags.BoolVar(&cliCtx.Config.Insecure, config.FlagInsecure, false, "Skip TLS certificate verification")

	flags.StringVar(&cliCtx.Config.ConfigFile, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&cliCtx.Config.Namespace, "namespace", "", "Kubernetes namespace of the ConfigMap, Secret and service (default: default)")
	flags.StringVar(&cliCtx.Config.Kubeconfig, "kubeconfig", "", "Path to kubeconfig file (default: ~/.kube/config)")
	flags.StringVar(&cliCtx.Config.ConfigMapName, "configmap", "", "ConfigMap name containing configuration")
	flags.StringVar(&cliCtx.Config.SecretName, "secret", "", "Secret name containing configuration overrides")

	flags.BoolVar(&cliCtx.Config.Debug, "debug", false, "Enable debug output")
	flags.BoolVarP(&cliCtx.Config.Quiet, "quiet", "q", false, "Suppress operational messages (only show errors and data output)")
	flags.StringVarP(&cliCtx.Config.OutputFormat, "output", "o", "table", "Output format (table, json)")
	flags.DurationVar(&cliCtx.Config.Timeout, "timeout", 0, "Abort the command after this duration (default: no timeout)")
	flags.BoolVar(&cliCtx.Config.RetryWrites, "retry-writes", true, "Retry failed PUT, POST and DELETE requests")
}

func init() {
	cliCtx = config.NewContext()
	addGlobalFlags(rootCmd)

	rootCmd.AddCommand(snapshot.Cmd(cliCtx))
	rootCmd.AddCommand(cluster.Cmd(cliCtx))
}

var rootCmd = &cobra.Command{
	Use:   "es-snapper",
	Short: "Snapshot, restore and administration tool for Elasticsearch",
	Long: `A CLI tool for managing snapshots of an Elasticsearch cluster in an S3 snapshot
repository, restoring them and administering cluster settings.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		cliCtx.Config.Changed = func(name string) bool {
			return cmd.Flags().Changed(name)
		}
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the running operation.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
