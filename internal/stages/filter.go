package stages

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/logging"
	"texforge/internal/rules"
)

// Filter builds the candidate map list from the asset's file rules. Ignored
// files and files matched by an ignore pattern are dropped, extras are set
// aside for verbatim copying, and the remaining maps receive their variant
// keys in declaration order.
type Filter struct {
	base
}

// NewFilter constructs the file rule filter stage.
func NewFilter() *Filter { return &Filter{} }

// Name returns the stage name.
func (f *Filter) Name() string { return NameFilter }

// Execute populates ac.Files and ac.Extras.
func (f *Filter) Execute(_ context.Context, ac *asset.Context) error {
	logger := f.log()

	var ignorePatterns []string
	for _, file := range ac.Asset.Files {
		if file.IsIgnored() {
			ignorePatterns = append(ignorePatterns, filepath.ToSlash(file.FilePath))
		}
	}

	var candidates []rules.FileRule
	for _, file := range ac.Asset.Files {
		switch {
		case file.IsIgnored():
			logger.Debug("file ignored", logging.String("file", file.FilePath), logging.String(logging.FieldEventType, "file_ignored"))
			continue
		case matchesAny(file.FilePath, ignorePatterns):
			logger.Debug("file matched ignore pattern", logging.String("file", file.FilePath), logging.String(logging.FieldEventType, "file_ignored"))
			continue
		case file.IsExtra():
			ac.Extras = append(ac.Extras, file)
			continue
		}
		itemType := file.EffectiveType()
		if !strings.HasPrefix(itemType, "MAP_") || !ac.Config.IsKnownType(itemType) {
			note := fmt.Sprintf("skipped %s: unknown item type %q", file.FilePath, itemType)
			assetNote(ac, note)
			logging.WarnWithContext(
				logger,
				"file has unknown item type",
				"file_unknown_type",
				logging.String("file", file.FilePath),
				logging.String("item_type", itemType),
				logging.String(logging.FieldErrorHint, "classify the file or add the type to [file_types]"),
				logging.String(logging.FieldImpact, "file not processed"),
			)
			continue
		}
		candidates = append(candidates, file)
	}

	ac.Files = assignKeys(ac, candidates)

	if len(ac.Files) == 0 && len(ac.Extras) == 0 {
		ac.MarkSkipped("no processable files after filtering")
		logger.Info(
			"asset skipped",
			logging.Args(append(logging.DecisionAttrs("asset_skip", "skipped", ac.SkipReason),
				logging.String(logging.FieldEventType, "asset_skipped"))...)...,
		)
		return nil
	}
	logger.Debug(
		"files filtered",
		logging.String(logging.FieldEventType, "files_filtered"),
		logging.Int("maps", len(ac.Files)),
		logging.Int("extras", len(ac.Extras)),
		logging.Strings("map_keys", ac.MapKeys()),
	)
	return nil
}

// assignKeys numbers candidates that share a base type (-1, -2, ... in rule
// order). A lone file is numbered only when its type respects variants.
// Explicit suffixes in the item type are kept.
func assignKeys(ac *asset.Context, candidates []rules.FileRule) []*asset.MapFile {
	counts := make(map[string]int)
	used := make(map[string]bool)
	for _, file := range candidates {
		baseType, variant := rules.SplitVariant(file.EffectiveType())
		counts[baseType]++
		if variant > 0 {
			used[file.EffectiveType()] = true
		}
	}

	next := make(map[string]int)
	files := make([]*asset.MapFile, 0, len(candidates))
	for _, file := range candidates {
		itemType := file.EffectiveType()
		baseType, variant := rules.SplitVariant(itemType)
		key := itemType
		if variant == 0 && (counts[baseType] > 1 || ac.Config.RespectsVariant(baseType)) {
			for {
				next[baseType]++
				key = rules.VariantKey(baseType, next[baseType])
				if !used[key] {
					break
				}
			}
			used[key] = true
		}
		files = append(files, &asset.MapFile{
			Rule:       file,
			Key:        key,
			SourcePath: ac.ResolvePath(file.FilePath),
		})
	}
	return files
}

// matchesAny reports whether file matches one of the ignore patterns, either
// by its full relative path or by its base name.
func matchesAny(file string, patterns []string) bool {
	slashed := filepath.ToSlash(file)
	name := path.Base(slashed)
	for _, pattern := range patterns {
		if ok, _ := path.Match(pattern, slashed); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, name); ok {
				return true
			}
		}
	}
	return false
}
