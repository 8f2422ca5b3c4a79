package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"winfp/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the winfp log file (requires logging.dir)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ctx.configValue().Logging.Dir
			if dir == "" {
				return errors.New("no log file configured (set logging.dir or WINFP_LOG_DIR)")
			}
			path := filepath.Join(dir, logs.FileName)
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, 0, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
