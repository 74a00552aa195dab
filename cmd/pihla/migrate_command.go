package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pihla/internal/migrate"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var rewriteMode string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Reorganize legacy flat assets into the uploads/web layout",
		Long: `Creates the upload and web folders, copies legacy assets and originals into
them, and rewrites content JSON references to the new locations. Files are
copied, never moved, so the command is safe to re-run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			m, err := migrate.New(s.cfg, migrate.DefaultPlan(s.cfg), rewriteMode, s.logger)
			if err != nil {
				return err
			}
			report, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, report)
			}

			documents := "-"
			if len(report.DocumentsUpdated) > 0 {
				documents = strings.Join(report.DocumentsUpdated, ", ")
			}
			rows := [][]string{
				{"Folders created", fmt.Sprintf("%d", report.DirsCreated)},
				{"Assets copied", fmt.Sprintf("%d", report.FilesCopied)},
				{"Already in place", fmt.Sprintf("%d", report.AlreadyInPlace)},
				{"Originals copied", fmt.Sprintf("%d", report.OriginalsCopied)},
				{"Subfolder files", fmt.Sprintf("%d", report.SubfolderFiles)},
				{"Documents updated", documents},
				{"CMS config updated", yesNo(report.CMSConfigUpdated)},
				{"Rewrite mode", m.Mode()},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Migration", ""}, rows, nil))
			fmt.Fprintln(out, "Legacy files were left in place; remove them once the site renders correctly.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rewriteMode, "rewrite-mode", "", "Reference rewrite mode: text or strings (default from config)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the migration report as JSON")
	return cmd
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
