package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"texforge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs, or the asset outcomes of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			if runID != "" {
				results, err := store.AssetResults(cmd.Context(), runID)
				if err != nil {
					return err
				}
				if jsonOut {
					if results == nil {
						results = []history.AssetResult{}
					}
					return writeJSON(cmd, results)
				}
				if len(results) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No asset results for run %s\n", runID)
					return nil
				}
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					detail := r.OutputDir
					if r.Reason != "" {
						detail = r.Reason
					}
					rows = append(rows, []string{filepath.Base(r.Source), r.Asset, r.Status, r.Duration.String(), detail})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Source", "Asset", "Status", "Duration", "Output / Reason"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					humanize.Time(r.StartedAt),
					r.Status,
					strconv.Itoa(r.Processed),
					strconv.Itoa(r.Skipped),
					strconv.Itoa(r.Failed),
					r.Duration().Round(time.Millisecond).String(),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Started", "Status", "Processed", "Skipped", "Failed", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the asset outcomes of one run")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON")
	return cmd
}
