package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"texforge/internal/logging"
	"texforge/internal/notifications"
)

// WithNotifier publishes a summary when each run ends.
func WithNotifier(n notifications.Service) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

func (m *Manager) notifyRunEnd(ctx context.Context, logger *slog.Logger, outcome RunOutcome, runErr error) {
	if m.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if runErr != nil {
		err = m.notifier.NotifyRunAborted(ctx, outcome.RunID, runErr)
	} else {
		summary := notifications.RunSummary{
			RunID:     outcome.RunID,
			Processed: outcome.Processed,
			Skipped:   outcome.Skipped,
			Failed:    outcome.Failed,
			Duration:  outcome.Duration,
		}
		for _, f := range outcome.Failures {
			summary.Failures = append(summary.Failures, fmt.Sprintf("%s: %s", f.Asset, f.Reason))
		}
		err = m.notifier.NotifyRunCompleted(ctx, summary)
	}
	if err != nil {
		logging.WarnWithContext(logger, "run notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "run summary not delivered"),
		)
	}
}
