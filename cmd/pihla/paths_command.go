package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pihla/internal/pathmap"
)

func newPathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "paths [upload-path...]",
		Short:       "Map upload paths to their optimized web paths",
		Long:        "Prints the web path for each argument, one per line. With no arguments, paths are read from stdin.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) > 0 {
				for _, arg := range args {
					fmt.Fprintln(out, pathmap.OptimizedImagePath(arg))
				}
				return nil
			}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				fmt.Fprintln(out, pathmap.OptimizedImagePath(line))
			}
			return scanner.Err()
		},
	}
}
