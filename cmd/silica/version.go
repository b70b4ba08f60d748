package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"silica/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		colorEnabled(cmd)
		fmt.Fprintf(cmd.OutOrStdout(), "silica %s\n", version.Version)
		if version.GitCommit != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "commit: %s\n", version.GitCommit)
		}
		if version.BuildDate != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "built: %s\n", version.BuildDate)
		}
	},
}
