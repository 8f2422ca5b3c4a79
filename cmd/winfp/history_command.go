package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"winfp/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded enrollment and database maintenance runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if !cfg.History.Enabled {
				return errors.New("history journal is disabled (set history.enabled = true)")
			}
			store, err := history.Open(cmd.Context(), cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if jsonOutput {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}

			p := newPrinter(cmd)
			p.header("History")
			if len(entries) == 0 {
				p.info("Entries", "none recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				outcome := e.Outcome
				if e.Failed {
					outcome += " (!)"
				}
				rows = append(rows, []string{
					fmt.Sprint(e.ID),
					humanize.Time(e.CreatedAt),
					string(e.Kind),
					outcome,
					e.Summary,
				})
			}
			p.table([]string{"#", "When", "Kind", "Outcome", "Summary"}, rows, []columnAlignment{alignRight})
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 shows all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
