package workflow

import (
	"context"
	"log/slog"
	"time"

	"texforge/internal/history"
	"texforge/internal/logging"
)

func (m *Manager) beginRun(ctx context.Context, logger *slog.Logger, run history.Run) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.BeginRun(ctx, run); err != nil {
		logging.WarnWithContext(logger, "failed to record run start", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir"),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}

func (m *Manager) finishRun(ctx context.Context, logger *slog.Logger, outcome RunOutcome, runErr error) {
	if m.recorder == nil {
		return
	}
	finished := time.Now()
	run := history.Run{
		ID:         outcome.RunID,
		FinishedAt: &finished,
		Status:     history.RunCompleted,
		Sources:    outcome.Sources,
		Processed:  outcome.Processed,
		Skipped:    outcome.Skipped,
		Failed:     outcome.Failed,
	}
	if runErr != nil {
		run.Status = history.RunAborted
		run.Error = runErr.Error()
	}
	if err := m.recorder.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "failed to record run completion", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir"),
			logging.String(logging.FieldImpact, "run history incomplete"),
		)
	}
}
