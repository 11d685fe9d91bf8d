package workflow

import (
	"log/slog"
	"sync"
	"time"

	"texforge/internal/config"
	"texforge/internal/logging"
	"texforge/internal/notifications"
	"texforge/internal/stage"
	"texforge/internal/stages"
)

// Manager coordinates one or more pipeline runs against a configuration.
type Manager struct {
	cfg       *config.Config
	logger    *slog.Logger
	recorder  Recorder
	notifier  notifications.Service
	stages    func() []stage.Handler
	progress  func(AssetReport)
	rulesFile string
	now       func() time.Time

	// reportMu serializes recorder writes and progress callbacks.
	reportMu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithRecorder persists runs and asset outcomes.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithStages replaces the stage list factory. The factory is called once per
// asset because handlers hold per-asset loggers.
func WithStages(factory func() []stage.Handler) Option {
	return func(m *Manager) {
		if factory != nil {
			m.stages = factory
		}
	}
}

// WithProgress registers a callback invoked after each asset completes.
func WithProgress(fn func(AssetReport)) Option {
	return func(m *Manager) {
		m.progress = fn
	}
}

// WithRulesFile records the rule document path in the run history.
func WithRulesFile(path string) Option {
	return func(m *Manager) {
		m.rulesFile = path
	}
}

// WithClock overrides the time source handed to every asset context.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
		stages: stages.Default,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
