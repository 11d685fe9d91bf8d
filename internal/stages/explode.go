package stages

import (
	"context"
	"fmt"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/logging"
)

// PrepareItems decodes each filtered map once and emits one processing item
// per resolution that fits the source, plus the LOWRES fallback for small
// sources. Applicable merge rules append one merge item each.
type PrepareItems struct {
	base
}

// NewPrepareItems constructs the item explosion stage.
func NewPrepareItems() *PrepareItems { return &PrepareItems{} }

// Name returns the stage name.
func (p *PrepareItems) Name() string { return NameExplode }

// Execute fills ac.Items and ac.MergeTasks.
func (p *PrepareItems) Execute(_ context.Context, ac *asset.Context) error {
	cfg := ac.Config
	resolutions := cfg.SortedResolutions()

	for _, file := range ac.Files {
		img, err := loadSource(ac, NameExplode, file)
		if err != nil {
			return err
		}
		entry := mapEntry(ac, file.Key)
		entry.SourceFile = file.Rule.FilePath
		entry.Width = img.Width
		entry.Height = img.Height
		entry.SourceBitDepth = img.BitDepth

		newItem := func(key string, size int) *asset.ProcessingItem {
			return &asset.ProcessingItem{
				MapType:        file.Key,
				ResolutionKey:  key,
				TargetSize:     size,
				SourcePath:     file.SourcePath,
				Image:          img,
				OriginalWidth:  img.Width,
				OriginalHeight: img.Height,
				SourceBitDepth: img.BitDepth,
				SourceFormat:   img.Format,
				FormatOverride: normalizeFormatOverride(file.Rule.OutputFormatOverride),
			}
		}

		maxDim := img.MaxDim()
		emitted := 0
		for _, res := range resolutions {
			if res.Size > maxDim || !allowedResolution(file.Rule.ResolutionOverride, res.Key) {
				continue
			}
			ac.Items = append(ac.Items, newItem(res.Key, res.Size))
			emitted++
		}
		if lowResEligible(cfg, maxDim) {
			ac.Items = append(ac.Items, newItem(config.LowResKey, maxDim))
			emitted++
		}
		if emitted == 0 {
			entry.AddNote(fmt.Sprintf("no configured resolution fits %dx%d", img.Width, img.Height))
		}
		p.log().Debug(
			"map exploded",
			logging.String(logging.FieldEventType, "map_exploded"),
			logging.String(logging.FieldMapType, file.Key),
			logging.String("dimensions", fmt.Sprintf("%dx%d", img.Width, img.Height)),
			logging.Int("items", emitted),
		)
	}

	for _, rule := range cfg.MergeRules {
		if !mergeApplies(ac, rule) {
			p.log().Debug(
				"merge rule not applicable",
				logging.String(logging.FieldEventType, "merge_not_applicable"),
				logging.String(logging.FieldMapType, rule.OutputMapType),
			)
			continue
		}
		task := asset.MergeTask{Rule: rule}
		ac.MergeTasks = append(ac.MergeTasks, task)
		ac.Items = append(ac.Items, &asset.ProcessingItem{
			MapType: task.OutputMapType(),
			Merge:   &task,
		})
	}
	return nil
}

// lowResEligible reports whether a source of maxDim receives the LOWRES
// fallback variant.
func lowResEligible(cfg *config.Config, maxDim int) bool {
	return cfg.Processing.LowResFallbackEnabled && maxDim < cfg.Processing.LowResThreshold
}

func allowedResolution(override []string, key string) bool {
	if len(override) == 0 {
		return true
	}
	for _, allowed := range override {
		if strings.EqualFold(strings.TrimSpace(allowed), key) {
			return true
		}
	}
	return false
}

func normalizeFormatOverride(value string) string {
	value = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".")
	switch value {
	case "jpeg":
		return config.FormatJPG
	case "tiff":
		return config.FormatTIFF
	default:
		return value
	}
}
