package asset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"texforge/internal/config"
	"texforge/internal/rules"
)

// Context carries one asset through the pipeline.
type Context struct {
	Source *rules.SourceRule
	Asset  *rules.AssetRule
	Config *config.Config

	// WorkspacePath is the prepared directory that file rule paths are
	// relative to.
	WorkspacePath string
	// EngineTempDir receives encoded variants before organization.
	EngineTempDir string
	// OutputBase is the library root.
	OutputBase string
	RunID      string

	EffectiveSupplier string
	SupplierError     string

	Skip       bool
	SkipReason string

	Metadata *Metadata
	Files    []*MapFile
	Extras   []rules.FileRule
	Cache    *LoadCache

	Items      []*ProcessingItem
	MergeTasks []MergeTask
	Saved      []SavedVariant
	// Placed lists library files written by this run, newest last.
	Placed []string

	// Tokens holds the asset-level pattern values (assetname, supplier, ...).
	Tokens map[string]string
	// OutputDir is the asset directory relative to OutputBase once resolved.
	OutputDir string

	Now func() time.Time
}

// New builds a Context for one asset of source.
func New(source *rules.SourceRule, assetRule *rules.AssetRule, cfg *config.Config, workspace, tempDir, runID string) *Context {
	return &Context{
		Source:        source,
		Asset:         assetRule,
		Config:        cfg,
		WorkspacePath: workspace,
		EngineTempDir: tempDir,
		OutputBase:    cfg.Paths.OutputDir,
		RunID:         runID,
		Cache:         NewLoadCache(nil),
		Now:           time.Now,
	}
}

// Name returns the asset name.
func (c *Context) Name() string {
	if c.Asset == nil {
		return ""
	}
	return c.Asset.AssetName
}

// MarkSkipped flags the asset as skipped.
func (c *Context) MarkSkipped(reason string) {
	c.Skip = true
	c.SkipReason = reason
	if c.Metadata != nil {
		c.Metadata.Status = StatusSkipped
		c.Metadata.AddNote(reason)
	}
}

// Timestamp formats the current time for metadata fields.
func (c *Context) Timestamp() string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// ResolvePath returns the absolute path for a file rule path.
func (c *Context) ResolvePath(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.WorkspacePath, filepath.FromSlash(rel))
}

// FileByKey returns the map file with key.
func (c *Context) FileByKey(key string) (*MapFile, bool) {
	for _, f := range c.Files {
		if f.Key == key {
			return f, true
		}
	}
	return nil, false
}

// FilesOfType returns map files whose key resolves to the base type, in
// declaration order.
func (c *Context) FilesOfType(base string) []*MapFile {
	var out []*MapFile
	for _, f := range c.Files {
		if rules.BaseType(f.Key) == base {
			out = append(out, f)
		}
	}
	return out
}

// MapKeys returns the current map keys sorted.
func (c *Context) MapKeys() []string {
	keys := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		keys = append(keys, f.Key)
	}
	sort.Strings(keys)
	return keys
}

// SavedFor returns saved variants for mapType in save order.
func (c *Context) SavedFor(mapType string) []SavedVariant {
	var out []SavedVariant
	for _, s := range c.Saved {
		if s.MapType == mapType {
			out = append(out, s)
		}
	}
	return out
}

// String identifies the asset in logs.
func (c *Context) String() string {
	if c.Source == nil {
		return c.Name()
	}
	return fmt.Sprintf("%s/%s", filepath.Base(c.Source.InputPath), c.Name())
}

// DiscardPlaced removes every file in Placed. It is called when a later
// stage fails so the library never holds maps without their metadata.
// Files kept because overwrite is disabled were never placed and survive.
func (c *Context) DiscardPlaced() error {
	var errs []error
	for i := len(c.Placed) - 1; i >= 0; i-- {
		if err := os.Remove(c.Placed[i]); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	c.Placed = nil
	return errors.Join(errs...)
}
