package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"pihla/internal/pipeline"
	"pihla/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var noInitial bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the copy pass whenever uploads change",
		Long:  "Watches the upload folder recursively and runs the optimize copy pass after changes settle. Stop with Ctrl-C.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			runner := s.runner()
			trigger := func(runCtx context.Context) error {
				_, err := runner.Optimize(runCtx, pipeline.Options{Command: "watch"})
				return err
			}
			w := watch.New(s.cfg.Paths.UploadDir, trigger, watch.Options{
				Debounce:   time.Duration(s.cfg.Watch.DebounceMillis) * time.Millisecond,
				TempSuffix: s.cfg.Optimize.TempSuffix,
				RunOnStart: !noInitial,
				Logger:     s.logger,
			})
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&noInitial, "no-initial", false, "Skip the copy pass at startup")
	return cmd
}
