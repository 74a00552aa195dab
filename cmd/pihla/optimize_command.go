package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"pihla/internal/failures"
	"pihla/internal/optimizer"
	"pihla/internal/pipeline"
)

type optimizeFlags struct {
	assets     bool
	webInPlace bool
	json       bool
}

func newOptimizeCommand(ctx *commandContext) *cobra.Command {
	var flags optimizeFlags
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Copy uploads into the web tree, resized and recompressed",
		Long: `Mirrors every image under the upload folder into the web folder, bounded to the
configured width and recompressed. Up-to-date web copies are skipped.

--web-in-place and --assets additionally optimize those folders in place; each
file is backed up once before its first modification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, ctx, flags)
		},
	}
	cmd.Flags().BoolVar(&flags.assets, "assets", false, "Also optimize the flat site-assets folder in place")
	cmd.Flags().BoolVar(&flags.webInPlace, "web-in-place", false, "Also optimize the web folder in place (legacy layout)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Print the run summary as JSON")
	return cmd
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Copy every backup over its live file",
		Long:  "Overwrites live web and asset files with their pristine backups. Backups are left in place.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, ctx, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the restore summary as JSON")
	return cmd
}

func runOptimize(cmd *cobra.Command, ctx *commandContext, flags optimizeFlags) error {
	s, err := ctx.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	summary, runErr := s.runner().Optimize(cmd.Context(), pipeline.Options{
		IncludeAssets: flags.assets || s.cfg.Optimize.IncludeAssets,
		WebInPlace:    flags.webInPlace || s.cfg.Optimize.WebInPlace,
	})
	if flags.json {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
	} else {
		printOptimizeSummary(cmd.OutOrStdout(), summary)
	}
	return runErr
}

func runRestore(cmd *cobra.Command, ctx *commandContext, jsonOut bool) error {
	s, err := ctx.openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	summary, runErr := s.runner().Restore(cmd.Context())
	if jsonOut {
		if err := writeJSON(cmd, summary); err != nil {
			return err
		}
		return runErr
	}
	out := cmd.OutOrStdout()
	switch {
	case summary.NoBackup:
		fmt.Fprintf(out, "No backup folder at %s; nothing to restore\n", s.cfg.Paths.BackupDir)
	default:
		fmt.Fprintf(out, "Restored %d file(s)", summary.Restored)
		if summary.Failed > 0 {
			fmt.Fprintf(out, ", %d failed (see log)", summary.Failed)
		}
		fmt.Fprintln(out)
	}
	return runErr
}

func printOptimizeSummary(out io.Writer, summary pipeline.Summary) {
	rows := [][]string{
		{"Files processed", fmt.Sprintf("%d", summary.FilesProcessed)},
		{"Skipped", fmt.Sprintf("%d", summary.Skipped)},
		{"Conflicts", fmt.Sprintf("%d", summary.Conflicts)},
		{"Failed", fmt.Sprintf("%d", summary.Failed)},
		{"Bytes saved", formatBytes(summary.TotalBytesSaved)},
		{"Duration", formatDuration(summary.Duration)},
		{"Run", summary.RunID},
	}
	if summary.Canceled {
		rows = append(rows, []string{"Status", "canceled"})
	}
	fmt.Fprintln(out, renderTable([]string{"Summary", ""}, rows, []columnAlignment{alignLeft, alignRight}))

	var problems [][]string
	for _, result := range summary.Results {
		if result.Outcome != optimizer.OutcomeFailed && result.Outcome != optimizer.OutcomeConflict {
			continue
		}
		problems = append(problems, []string{
			string(result.Source.Category),
			result.Source.RelPath,
			string(result.Outcome),
			failures.Kind(result.Err),
		})
	}
	if len(problems) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable([]string{"Root", "Path", "Outcome", "Kind"}, problems, nil))
	}
}
