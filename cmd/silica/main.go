package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"silica/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "silica",
	Short: "SystemVerilog source manager toolkit",
	Long:  `Silica tracks source buffers, locations and include paths for SystemVerilog projects`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(locateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether the file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves the --color flag against the output terminal and
// syncs the global color state.
func colorEnabled(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	enabled := false
	switch mode {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		enabled = isTerminal(os.Stdout)
	}
	color.NoColor = !enabled
	return enabled
}
