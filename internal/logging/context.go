package logging

import (
	"context"
	"log/slog"

	"texforge/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one invocation of the pipeline.
	FieldRunID = "run_id"
	// FieldSource is the source input path (archive or folder).
	FieldSource = "source"
	// FieldAsset is the asset name.
	FieldAsset = "asset"
	// FieldStage is the pipeline stage name.
	FieldStage = "stage"
	// FieldMapType is the effective map type identifier (e.g. MAP_COL-1).
	FieldMapType = "map_type"
	// FieldResolution is a resolution key such as 4K or LOWRES.
	FieldResolution = "resolution"
	// FieldEventType categorizes a log line for filtering.
	FieldEventType = "event_type"
	// FieldDecisionType names the decision being logged.
	FieldDecisionType = "decision_type"
	// FieldErrorHint suggests a next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if source, ok := services.SourceFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSource, source))
	}
	if asset, ok := services.AssetFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldAsset, asset))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
