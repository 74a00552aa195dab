package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pihla/internal/config"
	"pihla/internal/ogimage"
)

func newOGCommand(ctx *commandContext) *cobra.Command {
	var logoFlag string
	var outputFlag string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "og",
		Short: "Render the Open Graph card from the site logo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := ogimage.OptionsFromConfig(cfg)
			if logoFlag != "" {
				if opts.Logo, err = config.ExpandPath(logoFlag); err != nil {
					return fmt.Errorf("resolve --logo: %w", err)
				}
			}
			if outputFlag != "" {
				if opts.Output, err = config.ExpandPath(outputFlag); err != nil {
					return fmt.Errorf("resolve --output: %w", err)
				}
			}

			result, err := ogimage.Generate(opts, logger)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s (%dx%d, %s)\n", result.Output, result.Width, result.Height, formatBytes(result.Bytes))
			fmt.Fprintf(out, "Logo size: %dx%d, background %s\n", result.LogoWidth, result.LogoHeight, opts.Background)
			return nil
		},
	}
	cmd.Flags().StringVar(&logoFlag, "logo", "", "Logo image (default og.logo)")
	cmd.Flags().StringVar(&outputFlag, "output", "", "Output JPEG path (default og.output)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}
