package snapshot

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/stackvista/es-snapper/cmd/connect"
	"github.com/stackvista/es-snapper/internal/config"
	"github.com/stackvista/es-snapper/internal/elasticsearch"
	"github.com/stackvista/es-snapper/internal/logger"
	"github.com/stackvista/es-snapper/internal/output"
)

func listCmd(cliCtx *config.Context) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List snapshots, oldest first",
		Run: func(cmd *cobra.Command, _ []string) {
			if err := runList(cmd, cliCtx); err != nil {
				logger.New(cliCtx.Config.Quiet, cliCtx.Config.Debug).Errorf("%v", err)
				os.Exit(1)
			}
		},
	}
}

func runList(cmd *cobra.Command, cliCtx *config.Context) error {
	ctx, cancel := connect.Context(cmd.Context(), cliCtx)
	defer cancel()

	session, err := connect.Open(ctx, cliCtx)
	if err != nil {
		return err
	}
	defer session.Close()

	mgr := newManager(session)
	session.Log.Infof("Fetching snapshots from repository '%s'...", mgr.Repository())

	snapshots, err := mgr.List(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	formatter := output.NewFormatterWithWriter(cmd.OutOrStdout(), cliCtx.Config.OutputFormat)
	return formatter.PrintTable(snapshotTable(snapshots))
}

func snapshotTable(snapshots []elasticsearch.Snapshot) output.Table {
	table := output.Table{
		Headers: []string{"SNAPSHOT", "STATE", "START TIME", "DURATION (ms)", "INDICES"},
		Rows:    make([][]string, 0, len(snapshots)),
	}

	for _, s := range snapshots {
		table.Rows = append(table.Rows, []string{
			s.Snapshot,
			s.State,
			s.StartTime,
			strconv.FormatInt(s.DurationInMillis, 10),
			strconv.Itoa(len(s.Indices)),
		})
	}
	return table
}

func snapshotNames(snapshots []elasticsearch.Snapshot) []string {
	names := make([]string, 0, len(snapshots))
	for _, s := range snapshots {
		names = append(names, s.Snapshot)
	}
	return names
}
