package stages

import (
	"log/slog"

	"texforge/internal/asset"
	"texforge/internal/logging"
)

// Stage names as they appear in logs and failure reasons.
const (
	NameSupplier = "supplier_determination"
	NameSkip     = "asset_skip_logic"
	NameMetadata = "metadata_initialization"
	NameFilter   = "file_rule_filter"
	NameGloss    = "gloss_to_rough"
	NameAlpha    = "alpha_to_mask"
	NameNormal   = "normal_green_invert"
	NameExplode  = "prepare_items"
	NameCoreLoop = "process_items"
	NameOrganize = "organize_output"
	NameFinalize = "finalize_metadata"
)

const componentStages = "stages"

type base struct {
	logger *slog.Logger
}

// SetLogger routes stage logs into the asset-scoped logger.
func (b *base) SetLogger(logger *slog.Logger) {
	b.logger = logging.NewComponentLogger(logger, componentStages)
}

func (b *base) log() *slog.Logger {
	if b.logger == nil {
		return logging.NewNop()
	}
	return b.logger
}

// assetNote records an asset-level metadata note.
func assetNote(ac *asset.Context, note string) {
	if ac.Metadata != nil {
		ac.Metadata.AddNote(note)
	}
}

// mapEntry returns the metadata entry of a map key. Entries are keyed by the
// filename-friendly alias (MAP_COL-2 is stored as COL-2).
func mapEntry(ac *asset.Context, mapKey string) *asset.MapEntry {
	if ac.Metadata == nil {
		ac.Metadata = &asset.Metadata{}
	}
	return ac.Metadata.Map(ac.Config.Alias(mapKey))
}
