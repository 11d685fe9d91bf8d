package stages

import (
	"context"
	"fmt"
	"path/filepath"

	"texforge/internal/asset"
	"texforge/internal/fileutil"
	"texforge/internal/logging"
	"texforge/internal/organizer"
	"texforge/internal/rules"
	"texforge/internal/services"
)

// Skip decides whether the asset is processed at all. An unresolved supplier
// fails the asset; explicit markers and existing output skip it.
type Skip struct {
	base
}

// NewSkip constructs the asset skip logic stage.
func NewSkip() *Skip { return &Skip{} }

// Name returns the stage name.
func (s *Skip) Name() string { return NameSkip }

// Execute flags the asset skipped or returns an ErrSupplier failure.
func (s *Skip) Execute(_ context.Context, ac *asset.Context) error {
	if ac.SupplierError != "" {
		return services.Wrap(services.ErrSupplier, NameSkip, "resolve supplier", ac.SupplierError, nil)
	}

	overwrite := ac.Config.Processing.OverwriteExisting
	switch ac.Asset.Marker() {
	case rules.MarkerSkip:
		s.skip(ac, "asset marked SKIP")
		return nil
	case rules.MarkerProcessed:
		if !overwrite {
			s.skip(ac, "asset marked PROCESSED and overwrite is disabled")
			return nil
		}
	}

	// A pattern with an incrementing value always yields a new directory, so
	// existing output can only be detected for fixed patterns.
	if organizer.HasToken(ac.Config.Output.DirectoryPattern, organizer.TokenIncrement) {
		return nil
	}
	dir, err := resolveAssetDir(ac)
	if err != nil {
		return err
	}
	ac.OutputDir = dir
	metadataPath := filepath.Join(ac.OutputBase, filepath.FromSlash(dir), MetadataFileName(ac.Name()))
	if !overwrite && fileutil.Exists(metadataPath) {
		s.skip(ac, fmt.Sprintf("output already exists at %s and overwrite is disabled", dir))
	}
	return nil
}

func (s *Skip) skip(ac *asset.Context, reason string) {
	ac.MarkSkipped(reason)
	s.log().Info(
		"asset skipped",
		logging.Args(append(logging.DecisionAttrs("asset_skip", "skipped", reason),
			logging.String(logging.FieldEventType, "asset_skipped"))...)...,
	)
}
