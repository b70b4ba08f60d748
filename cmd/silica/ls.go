package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"silica/internal/driver"
	"silica/internal/source"
)

var lsCmd = &cobra.Command{
	Use:   "ls DIR",
	Short: "Load every source file under a directory and list the buffers",
	Args:  cobra.ExactArgs(1),
	RunE:  runLs,
}

func init() {
	lsCmd.Flags().Int("jobs", 0, "maximum concurrent loads (0 = number of CPUs)")
	lsCmd.Flags().Bool("cache", false, "record file digests in the warm-start cache")
}

func runLs(cmd *cobra.Command, args []string) error {
	colorEnabled(cmd)
	jobs, _ := cmd.Flags().GetInt("jobs")
	useCache, _ := cmd.Flags().GetBool("cache")

	var cache *driver.DiskCache
	if useCache {
		var err error
		cache, err = driver.OpenDiskCache("silica")
		if err != nil {
			return err
		}
	}

	sm := source.NewSourceManager()
	results, err := driver.LoadTree(cmd.Context(), sm, args[0], jobs, cache)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "BUFFER\tLINES\tBYTES\tPATH")
	var failures int
	for _, res := range results {
		if res.Err != nil {
			failures++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Path, res.Err)
			continue
		}
		lines := sm.GetLineNumber(source.NewSourceLocation(res.Buffer.ID, maxOffset(res.Buffer.Data)))
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", res.Buffer.ID, lines, len(res.Buffer.Data), sm.GetFullPath(res.Buffer.ID))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failures > 0 {
		cmd.SilenceUsage = true
		return fmt.Errorf("%d file(s) failed to load", failures)
	}
	return nil
}

func maxOffset(data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	return uint64(len(data) - 1)
}
