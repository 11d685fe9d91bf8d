package stageexec

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"texforge/internal/asset"
	"texforge/internal/logging"
	"texforge/internal/services"
	"texforge/internal/stage"
)

// Options controls one stage execution.
type Options struct {
	Logger  *slog.Logger
	Handler stage.Handler
	Asset   *asset.Context
}

// Run executes a stage against an asset context with start, completion, and
// failure logging. Stages are bypassed once the asset is flagged skipped.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return errors.New("stage handler unavailable")
	}
	if opts.Asset == nil {
		return errors.New("asset context is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	name := opts.Handler.Name()
	stageCtx := services.WithStage(ctx, name)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	if opts.Asset.Skip {
		stageLogger.Debug(
			"stage bypassed",
			logging.String(logging.FieldEventType, "stage_bypassed"),
			logging.String("skip_reason", opts.Asset.SkipReason),
		)
		return nil
	}
	if aware, ok := opts.Handler.(stage.LoggerAware); ok {
		aware.SetLogger(stageLogger)
	}

	stageLogger.Debug(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("stage_label", Label(name)),
	)
	started := time.Now()

	if err := opts.Handler.Execute(stageCtx, opts.Asset); err != nil {
		return handleFailure(stageLogger, name, err)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("duration", time.Since(started)),
	}
	if opts.Asset.Skip {
		attrs = append(attrs, logging.String("skip_reason", opts.Asset.SkipReason))
	}
	stageLogger.Debug("stage completed", logging.Args(attrs...)...)
	return nil
}

// RunAll executes handlers in order and stops at the first error.
func RunAll(ctx context.Context, logger *slog.Logger, handlers []stage.Handler, ac *asset.Context) error {
	for _, h := range handlers {
		if err := Run(ctx, Options{Logger: logger, Handler: h, Asset: ac}); err != nil {
			return err
		}
	}
	return nil
}

func handleFailure(logger *slog.Logger, name string, stageErr error) error {
	message := services.Reason(stageErr)
	if message == "" {
		message = "stage failed"
	}
	logging.ErrorWithContext(
		logger,
		"stage failed",
		"stage_failure",
		logging.String("stage_label", Label(name)),
		logging.String("error_message", strings.TrimSpace(message)),
		logging.Bool("fatal", services.IsFatal(stageErr)),
		logging.Error(stageErr),
	)
	return stageErr
}

// Label converts a stage name such as "gloss_to_rough" into "Gloss To Rough".
func Label(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	// A Caser carries state, so each call gets its own.
	return cases.Title(language.English).String(strings.Join(strings.Fields(strings.ReplaceAll(name, "_", " ")), " "))
}
