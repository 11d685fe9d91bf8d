package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"texforge/internal/logging"
	"texforge/internal/preflight"
	"texforge/internal/services"
)

// runPreflightChecks validates the configured directories before any asset
// runs. Failures are setup errors and abort the run.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, m.cfg)
	if len(results) == 0 {
		return nil
	}

	var failures []string
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
		} else {
			logger.Error("preflight check failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported issue and rerun"),
			)
			failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}

	if len(failures) > 0 {
		return services.Wrap(services.ErrSetup, "workflow", "preflight", strings.Join(failures, "; "), nil)
	}
	return nil
}
