package stages

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/fileutil"
	"texforge/internal/logging"
	"texforge/internal/organizer"
	"texforge/internal/services"
)

// Organize copies saved variants and extra files from the engine temp
// directory into the library and records their names in the metadata.
type Organize struct {
	base
}

// NewOrganize constructs the output organization stage.
func NewOrganize() *Organize { return &Organize{} }

// Name returns the stage name.
func (o *Organize) Name() string { return NameOrganize }

// Execute places every saved variant at
// <output>/<directory_pattern>/<filename_pattern> and every extra at
// <output>/<directory_pattern>/<extra_subdir>/<name>.
func (o *Organize) Execute(_ context.Context, ac *asset.Context) error {
	cfg := ac.Config
	overwrite := cfg.Processing.OverwriteExisting
	if ac.Metadata == nil {
		ac.Metadata = &asset.Metadata{}
	}
	dir, err := allocateAssetDir(ac)
	if err != nil {
		return err
	}
	values, err := assetTokens(ac)
	if err != nil {
		return err
	}
	assetDir := filepath.Join(ac.OutputBase, filepath.FromSlash(dir))
	ac.Metadata.OutputPath = dir

	kept := 0
	for _, saved := range ac.Saved {
		name, err := organizer.Resolve(cfg.Output.FilenamePattern, values.
			With(organizer.TokenMapType, cfg.Alias(saved.MapType)).
			With(organizer.TokenResolution, saved.ResolutionKey).
			With(organizer.TokenExt, saved.Format), now(ac))
		if err != nil {
			return services.Wrap(services.ErrOutput, NameOrganize, "resolve filename", saved.MapType, err)
		}
		if strings.ContainsAny(name, `/\`) {
			return services.Wrap(services.ErrOutput, NameOrganize, "resolve filename", fmt.Sprintf("filename %q contains a path separator", name), nil)
		}
		target := filepath.Join(assetDir, name)
		copied, err := organizer.Place(saved.TempPath, target, overwrite)
		if err != nil {
			return services.Wrap(services.ErrOutput, NameOrganize, "place", name, err)
		}
		if copied {
			ac.Placed = append(ac.Placed, target)
		} else {
			kept++
		}

		entry := mapEntry(ac, saved.MapType)
		entry.VariantPaths[saved.ResolutionKey] = name
		if entry.Formats == nil {
			entry.Formats = make(map[string]string)
		}
		entry.Formats[saved.ResolutionKey] = saved.Format
		entry.BitDepth = max(entry.BitDepth, saved.BitDepth)
		ac.Metadata.FinalOutputFiles = append(ac.Metadata.FinalOutputFiles, target)
	}

	for _, extra := range ac.Extras {
		source := ac.ResolvePath(extra.FilePath)
		name := filepath.Base(source)
		if !fileutil.Exists(source) {
			assetNote(ac, fmt.Sprintf("extra file %s not found", extra.FilePath))
			logging.WarnWithContext(
				o.log(),
				"extra file missing",
				"extra_missing",
				logging.String("file", extra.FilePath),
				logging.String(logging.FieldImpact, "extra file not copied"),
			)
			continue
		}
		target := filepath.Join(assetDir, filepath.FromSlash(cfg.Output.ExtraSubdir), name)
		copied, err := organizer.Place(source, target, overwrite)
		if err != nil {
			return services.Wrap(services.ErrOutput, NameOrganize, "place extra", extra.FilePath, err)
		}
		if copied {
			ac.Placed = append(ac.Placed, target)
		}
		ac.Metadata.ExtraFiles = append(ac.Metadata.ExtraFiles, path.Join(filepath.ToSlash(cfg.Output.ExtraSubdir), name))
		ac.Metadata.FinalOutputFiles = append(ac.Metadata.FinalOutputFiles, target)
	}

	if kept > 0 {
		assetNote(ac, fmt.Sprintf("%d existing file(s) kept because overwrite is disabled", kept))
	}
	o.log().Info(
		"output organized",
		logging.String(logging.FieldEventType, "output_organized"),
		logging.String("output_dir", dir),
		logging.Int("files", len(ac.Metadata.FinalOutputFiles)),
		logging.Int("kept_existing", kept),
	)
	return nil
}
