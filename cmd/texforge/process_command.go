package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"texforge/internal/asset"
	"texforge/internal/history"
	"texforge/internal/notifications"
	"texforge/internal/rules"
	"texforge/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var rulesPath string
	var workers int
	var parallelism string
	var overwrite bool
	var noProgress bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process every asset of a rule document into the library",
		Long: `Process every asset described by a rule document.

Each source's input_path must be an extracted folder; relative paths are
resolved against the rule document's directory. Failed assets are reported
with a reason and do not stop the batch. Interrupting the command lets
in-flight assets finish and starts no new ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := base.Clone()
			if cmd.Flags().Changed("workers") {
				cfg.Processing.Workers = workers
			}
			if cmd.Flags().Changed("parallelism") {
				cfg.Processing.Parallelism = strings.ToLower(strings.TrimSpace(parallelism))
			}
			if cmd.Flags().Changed("overwrite") {
				cfg.Processing.OverwriteExisting = overwrite
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}

			sources, err := loadSources(rulesPath)
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			logger, err := ctx.newLogger(cfg, stderr)
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			opts := []workflow.Option{
				workflow.WithRecorder(store),
				workflow.WithRulesFile(rulesPath),
				workflow.WithNotifier(notifications.NewService(cfg)),
			}
			var bar *progressbar.ProgressBar
			if !noProgress && !jsonOut && isTerminal(stderr) {
				bar = newProgressBar(stderr, countAssets(sources))
				opts = append(opts, workflow.WithProgress(func(r workflow.AssetReport) {
					bar.Describe(r.Asset)
					_ = bar.Add(1)
				}))
			}

			outcome, runErr := workflow.NewManager(cfg, logger, opts...).Run(cmd.Context(), sources)
			if bar != nil {
				_ = bar.Finish()
			}

			if jsonOut {
				if err := writeJSON(cmd, outcomeJSON(outcome)); err != nil {
					return err
				}
			} else {
				printOutcome(cmd.OutOrStdout(), outcome)
			}
			if runErr != nil {
				return runErr
			}
			if outcome.Failed > 0 {
				return fmt.Errorf("%d asset(s) failed", outcome.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "Rule document (YAML or JSON)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override processing.workers")
	cmd.Flags().StringVar(&parallelism, "parallelism", "", "Override processing.parallelism (asset or source)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Override processing.overwrite_existing")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run outcome as JSON")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

// loadSources reads the rule document and anchors relative input paths to
// its directory.
func loadSources(path string) ([]rules.SourceRule, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--rules is required")
	}
	sources, err := rules.LoadFile(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range sources {
		if !filepath.IsAbs(sources[i].InputPath) {
			sources[i].InputPath = filepath.Join(dir, filepath.FromSlash(sources[i].InputPath))
		}
	}
	return sources, nil
}

func countAssets(sources []rules.SourceRule) int {
	total := 0
	for _, s := range sources {
		total += len(rules.Regroup(s).Assets)
	}
	return total
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("processing"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionClearOnFinish(),
	)
}

func printOutcome(out io.Writer, outcome workflow.RunOutcome) {
	if len(outcome.Assets) > 0 {
		rows := make([][]string, 0, len(outcome.Assets))
		for _, r := range outcome.Assets {
			detail := r.OutputDir
			if r.Status != asset.StatusProcessed {
				detail = r.Reason
			}
			rows = append(rows, []string{
				filepath.Base(r.Source),
				r.Asset,
				r.Status,
				r.Duration.Round(time.Millisecond).String(),
				detail,
			})
		}
		fmt.Fprint(out, renderTable(
			[]string{"Source", "Asset", "Status", "Duration", "Output / Reason"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
	fmt.Fprintf(out, "Run %s: %d processed, %d skipped, %d failed", outcome.RunID, outcome.Processed, outcome.Skipped, outcome.Failed)
	if outcome.Cancelled > 0 {
		fmt.Fprintf(out, ", %d not started", outcome.Cancelled)
	}
	fmt.Fprintf(out, " (%s encoded in %s)\n", humanize.IBytes(uint64(outcome.EncodedBytes)), outcome.Duration.Round(time.Millisecond))
}

func outcomeJSON(outcome workflow.RunOutcome) map[string]any {
	assets := make([]map[string]any, 0, len(outcome.Assets))
	for _, r := range outcome.Assets {
		assets = append(assets, map[string]any{
			"source":        r.Source,
			"asset":         r.Asset,
			"status":        r.Status,
			"reason":        r.Reason,
			"output_dir":    r.OutputDir,
			"encoded_bytes": r.EncodedBytes,
			"duration_ms":   r.Duration.Milliseconds(),
		})
	}
	return map[string]any{
		"run_id":        outcome.RunID,
		"sources":       outcome.Sources,
		"processed":     outcome.Processed,
		"skipped":       outcome.Skipped,
		"failed":        outcome.Failed,
		"not_started":   outcome.Cancelled,
		"encoded_bytes": outcome.EncodedBytes,
		"duration_ms":   outcome.Duration.Milliseconds(),
		"assets":        assets,
	}
}
