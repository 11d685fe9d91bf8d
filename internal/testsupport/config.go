package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"texforge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The output, workspace, and state directories exist on return.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "library")
	cfgVal.Paths.WorkspaceDir = filepath.Join(base, "workspace")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Logging.Format = "json"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	for _, dir := range []string{cfgVal.Paths.OutputDir, cfgVal.Paths.WorkspaceDir, cfgVal.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithOverwrite toggles processing.overwrite_existing.
func WithOverwrite(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.OverwriteExisting = enabled
	}
}

// WithWorkers sets the worker count and parallelism unit.
func WithWorkers(n int, parallelism string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.Workers = n
		b.cfg.Processing.Parallelism = parallelism
	}
}

// WithResolutions replaces the resolution table.
func WithResolutions(res map[string]int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Resolutions = res
	}
}

// WithLowRes configures the LOWRES fallback.
func WithLowRes(enabled bool, threshold int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.LowResFallbackEnabled = enabled
		b.cfg.Processing.LowResThreshold = threshold
	}
}

// WithMergeRule appends a merge rule.
func WithMergeRule(rule config.MergeRule) ConfigOption {
	return func(b *configBuilder) {
		if rule.ChannelOrder == "" {
			rule.ChannelOrder = "RGB"
		}
		if rule.BitDepth == "" {
			rule.BitDepth = config.BitDepthRespect
		}
		if rule.DimensionPolicy == "" {
			rule.DimensionPolicy = config.DimensionUseLargest
		}
		b.cfg.MergeRules = append(b.cfg.MergeRules, rule)
		if _, ok := b.cfg.FileTypes[rule.OutputMapType]; !ok {
			b.cfg.FileTypes[rule.OutputMapType] = config.FileType{BitDepthRule: config.BitDepthRespect, Kind: config.KindData}
		}
	}
}

// WithInvertNormalGreen toggles processing.invert_normal_green.
func WithInvertNormalGreen(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Processing.InvertNormalGreen = enabled
	}
}

// WithConfig applies an arbitrary mutation.
func WithConfig(fn func(*config.Config)) ConfigOption {
	return func(b *configBuilder) {
		fn(b.cfg)
	}
}

// BaseDir returns the directory that holds the test config's paths.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
