package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"silica/internal/project"
	"silica/internal/source"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve NAME [NAME...]",
	Short: "Resolve include file names against the configured search paths",
	Long: `Resolve looks each NAME up the way the preprocessor would for an
include directive, using the directories declared in silica.toml plus any
given with -I.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Bool("system", false, "use angle-bracket include semantics")
	resolveCmd.Flags().StringArrayP("include", "I", nil, "extra include directory, searched first")
}

func runResolve(cmd *cobra.Command, args []string) error {
	colorEnabled(cmd)
	isSystem, _ := cmd.Flags().GetBool("system")
	extraDirs, _ := cmd.Flags().GetStringArray("include")

	sm := source.NewSourceManager()
	if manifest, ok, err := project.Find("."); err != nil {
		return err
	} else if ok {
		if _, err := manifest.Apply(sm); err != nil {
			return err
		}
	}

	var misses int
	for _, name := range args {
		buf, err := sm.ReadHeader(name, source.NoLocation, nil, isSystem, extraDirs)
		if err != nil {
			misses++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, sm.GetFullPath(buf.ID))
	}
	if misses > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d include(s) not found", misses)
	}
	return nil
}
