package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pihla/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var jsonOut bool
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the journal",
		Long: "Without --run, lists the most recent runs. With --run, lists the per-file outcomes of one run (full ID or unique prefix).\n" +
			"--prune-days deletes finished runs older than the given number of days before listing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openJournal()
			if err != nil {
				return err
			}
			defer store.Close()

			if pruneDays > 0 {
				cutoff := time.Now().AddDate(0, 0, -pruneDays)
				removed, err := store.PruneBefore(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				if !jsonOut {
					fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d run(s) older than %d day(s)\n", removed, pruneDays)
				}
			}

			if runID != "" {
				return showRun(cmd, store, runID, jsonOut)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.Command,
					string(run.Status),
					formatTime(run.StartedAt),
					formatDuration(run.Duration()),
					strconv.Itoa(run.FilesProcessed),
					strconv.Itoa(run.Skipped),
					strconv.Itoa(run.Failed),
					formatBytes(run.BytesSaved),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Command", "Status", "Started", "Duration", "Processed", "Skipped", "Failed", "Saved"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	cmd.Flags().StringVar(&runID, "run", "", "Show file outcomes for one run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print as JSON")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete finished runs older than this many days first")
	return cmd
}

func showRun(cmd *cobra.Command, store *journal.Store, idOrPrefix string, jsonOut bool) error {
	run, err := store.GetRun(cmd.Context(), idOrPrefix)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %q not found", idOrPrefix)
	}
	files, err := store.ListFiles(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(cmd, struct {
			Run   journal.Run          `json:"run"`
			Files []journal.FileRecord `json:"files"`
		}{*run, files})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s) %s, started %s, took %s\n",
		run.ID, run.Command, run.Status, formatTime(run.StartedAt), formatDuration(run.Duration()))
	if len(files) == 0 {
		fmt.Fprintln(out, "No file outcomes recorded")
		return nil
	}
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		detail := f.ErrorKind
		if f.ErrorMessage != "" {
			detail = f.ErrorKind + ": " + f.ErrorMessage
		}
		rows = append(rows, []string{
			f.Category,
			f.Path,
			f.Outcome,
			formatBytes(f.BytesBefore),
			formatBytes(f.BytesAfter),
			detail,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Root", "Path", "Outcome", "Before", "After", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
