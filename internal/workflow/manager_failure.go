package workflow

import (
	"log/slog"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/logging"
	"texforge/internal/services"
)

// classifyFailure returns the reason string shown in the run summary.
func classifyFailure(err error) string {
	if err == nil {
		return "failed without error detail"
	}
	message := strings.TrimSpace(services.Reason(err))
	if message == "" {
		return "asset failed"
	}
	return message
}

func logAssetOutcome(logger *slog.Logger, report AssetReport, err error) {
	switch report.Status {
	case asset.StatusFailed:
		impact := "asset not written; batch continues"
		if services.IsFatal(err) {
			impact = "run aborted"
		}
		attrs := []logging.Attr{
			logging.String("resolved_status", report.Status),
			logging.String("error_message", report.Reason),
			logging.Bool("fatal", services.IsFatal(err)),
			logging.Duration("duration", report.Duration),
			logging.String(logging.FieldImpact, impact),
		}
		if marker := services.Marker(err); marker != nil {
			attrs = append(attrs, logging.String("error_kind", marker.Error()))
		}
		attrs = append(attrs, logging.Error(err))
		logging.ErrorWithContext(logger, "asset failed", "asset_failed", attrs...)
	case asset.StatusSkipped:
		logger.Info("asset skipped",
			logging.String(logging.FieldEventType, "asset_skipped"),
			logging.String("skip_reason", report.Reason),
		)
	default:
		logger.Info("asset processed",
			logging.String(logging.FieldEventType, "asset_processed"),
			logging.String("output_dir", report.OutputDir),
			logging.Int64("encoded_bytes", report.EncodedBytes),
			logging.Duration("duration", report.Duration),
		)
	}
}

func logSummary(logger *slog.Logger, outcome RunOutcome, runErr error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_summary"),
		logging.Int("processed", outcome.Processed),
		logging.Int("skipped", outcome.Skipped),
		logging.Int("failed", outcome.Failed),
		logging.Int("cancelled", outcome.Cancelled),
		logging.Int64("encoded_bytes", outcome.EncodedBytes),
		logging.Duration("duration", outcome.Duration),
	}
	if runErr != nil {
		attrs = append(attrs, logging.Error(runErr))
		logging.WarnWithContext(logger, "run aborted", "run_aborted",
			append(attrs, logging.String(logging.FieldImpact, "remaining assets were not started"))...)
		return
	}
	logger.Info("run completed", logging.Args(attrs...)...)
}

// discardPlaced rolls back library files an asset wrote before failing.
func (m *Manager) discardPlaced(logger *slog.Logger, ac *asset.Context) {
	placed := len(ac.Placed)
	if err := ac.DiscardPlaced(); err != nil {
		logging.WarnWithContext(logger, "failed asset output not fully removed", "output_rollback_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the asset directory by hand"),
			logging.String(logging.FieldImpact, "library holds maps without metadata"),
		)
		return
	}
	logger.Info(
		"failed asset output removed",
		logging.String(logging.FieldEventType, "output_rolled_back"),
		logging.Int("files", placed),
	)
}
