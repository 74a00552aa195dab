package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var logFormatFlag string
	var restoreFlag bool
	var assetsFlag bool

	ctx := newCommandContext(&configFlag, &logLevelFlag, &logFormatFlag)

	rootCmd := &cobra.Command{
		Use:           "pihla",
		Short:         "Image asset pipeline for the Pihla Folk site",
		Long:          "Optimizes CMS uploads into web-ready images, keeps pristine backups of in-place edits, and restores them on demand.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if restoreFlag {
				return runRestore(cmd, ctx, false)
			}
			return runOptimize(cmd, ctx, optimizeFlags{assets: assetsFlag})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Override logging.format (console, json)")
	rootCmd.Flags().BoolVar(&restoreFlag, "restore", false, "Restore every backed-up file over its live copy")
	rootCmd.Flags().BoolVar(&assetsFlag, "assets", false, "Also optimize the flat site-assets folder in place")
	rootCmd.MarkFlagsMutuallyExclusive("restore", "assets")

	rootCmd.AddCommand(newOptimizeCommand(ctx))
	rootCmd.AddCommand(newRestoreCommand(ctx))
	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newOGCommand(ctx))
	rootCmd.AddCommand(newPathsCommand())
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
