package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pihla/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check site folders, free space and optional tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var lines []string
			lines = append(lines, renderSectionHeader("Configuration", colorize)...)
			source := ctx.configPath
			if !ctx.configExists {
				source = "defaults (no config file)"
			}
			lines = append(lines, renderStatusLine("Config", statusInfo, source, colorize))
			lines = append(lines, renderStatusLine("Project", statusInfo, cfg.Paths.ProjectDir, colorize))
			lines = append(lines, "")

			results := preflight.RunAll(cfg)
			lines = append(lines, renderSectionHeader("Checks", colorize)...)
			for _, r := range results {
				lines = append(lines, renderStatusLine(r.Name, resultKind(r), r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if !preflight.Healthy(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
