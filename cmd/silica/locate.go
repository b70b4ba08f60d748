package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"silica/internal/diagfmt"
	"silica/internal/source"
)

var locateCmd = &cobra.Command{
	Use:   "locate FILE OFFSET [OFFSET...]",
	Short: "Resolve byte offsets in a file to line and column positions",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLocate,
}

func init() {
	locateCmd.Flags().Int("width", 1, "underline width in characters")
	locateCmd.Flags().Bool("raw", false, "ignore `line directives and report physical positions")
}

func runLocate(cmd *cobra.Command, args []string) error {
	opts := diagfmt.Options{Color: colorEnabled(cmd)}
	width, _ := cmd.Flags().GetInt("width")
	raw, _ := cmd.Flags().GetBool("raw")

	sm := source.NewSourceManager()
	buf, err := sm.ReadSource(args[0], nil)
	if err != nil {
		return err
	}

	for _, arg := range args[1:] {
		offset, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid offset %q: %w", arg, err)
		}
		if offset >= uint64(len(buf.Data)) {
			return fmt.Errorf("offset %d is beyond the end of %s (%d bytes)", offset, args[0], len(buf.Data))
		}
		loc := source.NewSourceLocation(buf.ID, offset)

		if raw {
			fmt.Fprintf(cmd.OutOrStdout(), "%s:%d:%d\n",
				sm.GetRawFileName(buf.ID),
				sm.GetRawLineNumber(loc),
				sm.GetColumnNumber(loc))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), diagfmt.FormatLocation(sm, loc))
		}
		fmt.Fprintln(cmd.OutOrStdout(), diagfmt.Caret(sm, loc, width, opts))
	}
	return nil
}
