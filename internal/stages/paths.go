package stages

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"texforge/internal/asset"
	"texforge/internal/organizer"
	"texforge/internal/services"
	"texforge/internal/textutil"
)

const metadataFileSuffix = "_metadata.json"

// incrementMu serializes incrementing-value allocation so concurrent assets
// in one process never claim the same directory number.
var incrementMu sync.Mutex

// MetadataFileName returns the metadata document name for an asset.
func MetadataFileName(assetName string) string {
	return textutil.SanitizeFileName(assetName) + metadataFileSuffix
}

func now(ac *asset.Context) time.Time {
	if ac.Now != nil {
		return ac.Now()
	}
	return time.Now()
}

// assetTokens returns the asset-level pattern values, computing them once.
func assetTokens(ac *asset.Context) (organizer.Values, error) {
	if ac.Tokens != nil {
		return organizer.Values(ac.Tokens), nil
	}
	values := organizer.Values{}
	values.Set(organizer.TokenAssetName, textutil.SanitizeFileName(ac.Name()))
	values.Set(organizer.TokenAssetType, "")
	if assetType := ac.Asset.EffectiveAssetType(); assetType != "" {
		values.Set(organizer.TokenAssetType, textutil.SanitizeFileName(assetType))
	}
	values.Set(organizer.TokenSupplier, textutil.SanitizeFileName(ac.EffectiveSupplier))

	out := ac.Config.Output
	if organizer.HasToken(out.DirectoryPattern, organizer.TokenSHA5) || organizer.HasToken(out.FilenamePattern, organizer.TokenSHA5) {
		sum, err := organizer.SHA5(ac.Source.InputPath)
		if err != nil {
			return nil, services.Wrap(services.ErrOutput, "output", "sha5", "Failed to hash source input", err)
		}
		values.Set(organizer.TokenSHA5, sum)
	}
	ac.Tokens = map[string]string(values)
	return values, nil
}

// resolveAssetDir resolves directory_pattern for patterns that carry no
// incrementing value. The result is slash-separated and relative to the
// library root.
func resolveAssetDir(ac *asset.Context) (string, error) {
	values, err := assetTokens(ac)
	if err != nil {
		return "", err
	}
	dir, err := organizer.Resolve(ac.Config.Output.DirectoryPattern, values, now(ac))
	if err != nil {
		return "", services.Wrap(services.ErrOutput, "output", "resolve directory", "Failed to resolve directory pattern", err)
	}
	return cleanRelative(dir)
}

// allocateAssetDir resolves the asset directory, claiming the next
// incrementing value when the pattern carries one. The directory exists on
// return.
func allocateAssetDir(ac *asset.Context) (string, error) {
	if ac.OutputDir != "" {
		return ac.OutputDir, nil
	}
	values, err := assetTokens(ac)
	if err != nil {
		return "", err
	}
	pattern := ac.Config.Output.DirectoryPattern

	incrementMu.Lock()
	defer incrementMu.Unlock()

	next, err := organizer.NextIncrement(ac.OutputBase, pattern, values, now(ac))
	if err != nil {
		return "", services.Wrap(services.ErrOutput, "output", "incrementing value", "Failed to scan output directory", err)
	}
	values.Set(organizer.TokenIncrement, next)
	resolved, err := organizer.Resolve(pattern, values, now(ac))
	if err != nil {
		return "", services.Wrap(services.ErrOutput, "output", "resolve directory", "Failed to resolve directory pattern", err)
	}
	dir, err := cleanRelative(resolved)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(ac.OutputBase, filepath.FromSlash(dir)), 0o755); err != nil {
		return "", services.Wrap(services.ErrOutput, "output", "create directory", dir, err)
	}
	if organizer.HasToken(pattern, organizer.TokenIncrement) && ac.Metadata != nil {
		ac.Metadata.IncrementingValue = next
	}
	ac.OutputDir = dir
	return dir, nil
}

func cleanRelative(dir string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(dir, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", services.Wrap(services.ErrOutput, "output", "resolve directory", fmt.Sprintf("Directory %q escapes the library root", dir), nil)
	}
	return cleaned, nil
}
