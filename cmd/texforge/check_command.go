package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"texforge/internal/notifications"
	"texforge/internal/preflight"
	"texforge/internal/staging"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var testNotify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run preflight checks and list leftover engine temp directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprint(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			dirs, err := staging.ListRunDirs(cfg.Paths.WorkspaceDir)
			if err != nil {
				return fmt.Errorf("list engine temp directories: %w", err)
			}
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No engine temp directories")
			} else {
				var total int64
				dirRows := make([][]string, 0, len(dirs))
				for _, d := range dirs {
					total += d.Size
					dirRows = append(dirRows, []string{d.Name, humanize.Time(d.ModTime), humanize.IBytes(uint64(d.Size))})
				}
				fmt.Fprint(out, renderTable(
					[]string{"Engine temp directory", "Modified", "Size"},
					dirRows,
					[]columnAlignment{alignLeft, alignRight, alignRight},
				))
				fmt.Fprintf(out, "Total: %d directories, %s (removed automatically after %s)\n",
					len(dirs), humanize.IBytes(uint64(total)), staging.DefaultMaxAge.Truncate(time.Hour))
			}

			if testNotify {
				if cfg.Notifications.NtfyTopic == "" {
					fmt.Fprintln(out, "Notifications disabled (notifications.ntfy_topic is empty)")
				} else if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					return fmt.Errorf("test notification: %w", err)
				} else {
					fmt.Fprintln(out, "Test notification sent")
				}
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d preflight check(s) failed", len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&testNotify, "notify", false, "Send a test notification")
	return cmd
}
