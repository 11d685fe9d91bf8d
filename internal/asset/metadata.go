package asset

import (
	"sort"
	"strings"
)

// Asset processing statuses written to metadata.
const (
	StatusPending   = "Pending"
	StatusProcessed = "Processed"
	StatusSkipped   = "Skipped"
	StatusFailed    = "Failed"
)

// MetadataVersion is stamped into every metadata document.
const MetadataVersion = "1.0"

// MapEntry describes one output map in the metadata document.
type MapEntry struct {
	VariantPaths   map[string]string `json:"variant_paths"`
	SourceFile     string            `json:"source_file,omitempty"`
	Width          int               `json:"width,omitempty"`
	Height         int               `json:"height,omitempty"`
	SourceBitDepth int               `json:"source_bit_depth,omitempty"`
	// BitDepth is the deepest written variant.
	BitDepth int               `json:"bit_depth,omitempty"`
	Formats  map[string]string `json:"formats,omitempty"`
	Merged   bool              `json:"merged,omitempty"`
	Inputs   []string          `json:"inputs,omitempty"`
	Notes    []string          `json:"notes,omitempty"`
}

// AddNote appends a note once.
func (e *MapEntry) AddNote(note string) {
	for _, existing := range e.Notes {
		if existing == note {
			return
		}
	}
	e.Notes = append(e.Notes, note)
}

// Metadata is the per-asset document serialized next to the organized maps.
type Metadata struct {
	AssetName           string               `json:"asset_name"`
	AssetID             string               `json:"asset_id"`
	AssetType           string               `json:"asset_type,omitempty"`
	Supplier            string               `json:"supplier"`
	SourcePath          string               `json:"source_path"`
	PresetName          string               `json:"preset_name,omitempty"`
	OutputPath          string               `json:"output_path,omitempty"`
	IncrementingValue   string               `json:"incrementing_value,omitempty"`
	SHA5                string               `json:"sha5,omitempty"`
	Tags                []string             `json:"tags,omitempty"`
	CustomFields        map[string]any       `json:"custom_fields,omitempty"`
	RunID               string               `json:"run_id"`
	Version             string               `json:"version"`
	Status              string               `json:"status"`
	ProcessingStartTime string               `json:"processing_start_time"`
	ProcessingEndTime   string               `json:"processing_end_time,omitempty"`
	Maps                map[string]*MapEntry `json:"maps"`
	ExtraFiles          []string             `json:"extra_files,omitempty"`
	Notes               []string             `json:"notes,omitempty"`

	// FinalOutputFiles is bookkeeping for the organizer and is cleared
	// before the document is written.
	FinalOutputFiles []string `json:"-"`
}

// Map returns the entry for key, creating it on first use.
func (m *Metadata) Map(key string) *MapEntry {
	if m.Maps == nil {
		m.Maps = make(map[string]*MapEntry)
	}
	entry, ok := m.Maps[key]
	if !ok {
		entry = &MapEntry{VariantPaths: make(map[string]string)}
		m.Maps[key] = entry
	}
	return entry
}

// AddNote appends an asset-level note once.
func (m *Metadata) AddNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	for _, existing := range m.Notes {
		if existing == note {
			return
		}
	}
	m.Notes = append(m.Notes, note)
}

// MapKeys returns the map keys in sorted order.
func (m *Metadata) MapKeys() []string {
	keys := make([]string, 0, len(m.Maps))
	for k := range m.Maps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
