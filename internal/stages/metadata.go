package stages

import (
	"context"
	"fmt"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/logging"
	"texforge/internal/organizer"
)

// MetadataInit seeds the asset's metadata document.
type MetadataInit struct {
	base
}

// NewMetadataInit constructs the metadata initialization stage.
func NewMetadataInit() *MetadataInit { return &MetadataInit{} }

// Name returns the stage name.
func (m *MetadataInit) Name() string { return NameMetadata }

// Execute creates ac.Metadata with identity fields, a start timestamp, and
// status Pending.
func (m *MetadataInit) Execute(_ context.Context, ac *asset.Context) error {
	a := ac.Asset
	id := strings.TrimSpace(a.MetadataString("id"))
	if id == "" {
		id = strings.TrimSpace(a.MetadataString("asset_id"))
	}
	if id == "" {
		id = a.AssetName
	}

	md := &asset.Metadata{
		AssetName:           a.AssetName,
		AssetID:             id,
		AssetType:           a.EffectiveAssetType(),
		Supplier:            ac.EffectiveSupplier,
		SourcePath:          ac.Source.InputPath,
		PresetName:          ac.Source.PresetName,
		OutputPath:          ac.OutputDir,
		Tags:                metadataTags(a.CommonMetadata["tags"]),
		CustomFields:        customFields(a.CommonMetadata["custom_fields"]),
		RunID:               ac.RunID,
		Version:             asset.MetadataVersion,
		Status:              asset.StatusPending,
		ProcessingStartTime: ac.Timestamp(),
		Maps:                make(map[string]*asset.MapEntry),
	}
	values, err := assetTokens(ac)
	if err != nil {
		return err
	}
	md.SHA5 = values[organizer.TokenSHA5]
	ac.Metadata = md
	m.log().Debug(
		"metadata initialized",
		logging.String(logging.FieldEventType, "metadata_initialized"),
		logging.String("asset_id", id),
	)
	return nil
}

func metadataTags(value any) []string {
	var tags []string
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	case []string:
		for _, tag := range v {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	case []any:
		for _, item := range v {
			if tag := strings.TrimSpace(fmt.Sprint(item)); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func customFields(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			return nil
		}
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out
	default:
		return nil
	}
}
