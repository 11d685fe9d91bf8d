package asset

import (
	"texforge/internal/config"
	"texforge/internal/imaging"
	"texforge/internal/rules"
)

// MapFile is one filtered image map of the asset.
type MapFile struct {
	Rule rules.FileRule
	// Key is the effective map key including any variant suffix. Transform
	// stages retag it (MAP_GLOSS becomes MAP_ROUGH).
	Key string
	// SourcePath is the absolute path used as the load-cache key.
	SourcePath string
	// Synthetic marks maps generated by the pipeline rather than declared.
	Synthetic bool
}

// MergeTask is a channel-packing definition that applies to this asset.
type MergeTask struct {
	Rule config.MergeRule
}

// OutputMapType returns the map type produced by the task.
func (t MergeTask) OutputMapType() string {
	return t.Rule.OutputMapType
}

// MergedMap is the synthesized result of a merge task.
type MergedMap struct {
	MapType  string
	Image    *imaging.Image
	BitDepth int
	// Inputs lists, per channel of ChannelOrder, the map key or "default".
	Inputs []string
	Notes  []string
}

// Variant is one scaled rendition ready to be saved.
type Variant struct {
	ResolutionKey string
	Image         *imaging.Image
}

// ProcessingItem is one unit of work in the core loop. Regular items pair a
// source map with one resolution key. Merge items carry a MergeTask and fan
// out to every eligible resolution once merged.
type ProcessingItem struct {
	MapType       string
	ResolutionKey string
	TargetSize    int
	SourcePath    string
	// Image is the cached source decode; it is shared and must not be mutated.
	Image          *imaging.Image
	OriginalWidth  int
	OriginalHeight int
	SourceBitDepth int
	SourceFormat   string
	FormatOverride string

	Merge  *MergeTask
	Merged *MergedMap

	Variants []Variant
}

// IsLowRes reports whether the item is the unscaled fallback variant.
func (p *ProcessingItem) IsLowRes() bool {
	return p.ResolutionKey == config.LowResKey
}

// IsMerge reports whether the item synthesizes a packed map.
func (p *ProcessingItem) IsMerge() bool {
	return p.Merge != nil
}

// SavedVariant records one encoded file in the engine temp directory.
type SavedVariant struct {
	MapType       string
	ResolutionKey string
	TempPath      string
	Format        string
	BitDepth      int
	Width         int
	Height        int
}
