package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeProcessing()
	c.normalizeResolutions()
	c.normalizeOutput()
	c.normalizeSuppliers()
	c.normalizeFileTypes()
	c.normalizeMergeRules()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		if value, ok := os.LookupEnv("TEXFORGE_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.OutputDir = value
		} else {
			c.Paths.OutputDir = defaultOutputDir
		}
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		if value, ok := os.LookupEnv("TEXFORGE_WORKSPACE_DIR"); ok && strings.TrimSpace(value) != "" {
			c.Paths.WorkspaceDir = value
		} else {
			c.Paths.WorkspaceDir = defaultWorkspaceDir
		}
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}

	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.WorkspaceDir, err = expandPath(c.Paths.WorkspaceDir); err != nil {
		return fmt.Errorf("paths.workspace_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeProcessing() {
	p := &c.Processing
	if p.Workers == 0 {
		p.Workers = defaultWorkers
	}
	p.Parallelism = lowerOr(p.Parallelism, defaultParallelism)
	p.PotMode = lowerOr(p.PotMode, defaultPotMode)
	p.Interpolation = lowerOr(p.Interpolation, defaultInterpolation)
	if p.LowResThreshold == 0 {
		p.LowResThreshold = defaultLowResThreshold
	}
	p.RespectVariantMapTypes = upperAll(p.RespectVariantMapTypes)
}

func (c *Config) normalizeResolutions() {
	if c.Resolutions == nil {
		c.Resolutions = defaultResolutions()
		return
	}
	normalized := make(map[string]int, len(c.Resolutions))
	for key, size := range c.Resolutions {
		normalized[strings.TrimSpace(key)] = size
	}
	c.Resolutions = normalized
}

func (c *Config) normalizeOutput() {
	o := &c.Output
	if strings.TrimSpace(o.DirectoryPattern) == "" {
		o.DirectoryPattern = defaultDirectoryPattern
	}
	if strings.TrimSpace(o.FilenamePattern) == "" {
		o.FilenamePattern = defaultFilenamePattern
	}
	o.DirectoryPattern = strings.Trim(strings.TrimSpace(o.DirectoryPattern), "/")
	o.FilenamePattern = strings.TrimSpace(o.FilenamePattern)
	if strings.TrimSpace(o.ExtraSubdir) == "" {
		o.ExtraSubdir = defaultExtraSubdir
	}
	o.Format8Bit = normalizeFormat(o.Format8Bit, defaultFormat8Bit)
	o.Format16BitPrimary = normalizeFormat(o.Format16BitPrimary, defaultFormat16BitPrimary)
	o.Format16BitFallback = normalizeFormat(o.Format16BitFallback, defaultFormat16BitFallback)
	if o.JPGQuality == 0 {
		o.JPGQuality = defaultJPGQuality
	}
	o.ForceLosslessMapTypes = upperAll(o.ForceLosslessMapTypes)
}

func (c *Config) normalizeSuppliers() {
	if c.Suppliers == nil {
		c.Suppliers = defaultSuppliers()
		return
	}
	normalized := make(map[string]Supplier, len(c.Suppliers))
	for name, supplier := range c.Suppliers {
		normalized[strings.TrimSpace(name)] = supplier
	}
	c.Suppliers = normalized
}

// normalizeFileTypes layers configured entries over the built-in table so a
// file only needs to list the types it changes. Merge outputs missing from the
// table receive a data-kind entry.
func (c *Config) normalizeFileTypes() {
	defaults := defaultFileTypes()
	normalized := make(map[string]FileType, len(defaults)+len(c.FileTypes))
	for key, ft := range defaults {
		normalized[key] = ft
	}
	for key, ft := range c.FileTypes {
		key = strings.ToUpper(strings.TrimSpace(key))
		base := normalized[key]
		if alias := strings.TrimSpace(ft.Alias); alias != "" {
			base.Alias = alias
		}
		if rule := strings.ToLower(strings.TrimSpace(ft.BitDepthRule)); rule != "" {
			base.BitDepthRule = rule
		}
		if kind := strings.ToLower(strings.TrimSpace(ft.Kind)); kind != "" {
			base.Kind = kind
		}
		normalized[key] = base
	}
	for _, rule := range c.MergeRules {
		key := strings.ToUpper(strings.TrimSpace(rule.OutputMapType))
		if key == "" {
			continue
		}
		if _, ok := normalized[key]; !ok {
			normalized[key] = FileType{}
		}
	}
	for key, ft := range normalized {
		if ft.Alias == "" {
			ft.Alias = strings.TrimPrefix(key, "MAP_")
		}
		switch ft.BitDepthRule {
		case "":
			ft.BitDepthRule = BitDepthForce8
		case "respect_inputs":
			ft.BitDepthRule = BitDepthRespect
		}
		if ft.Kind == "" {
			ft.Kind = KindData
		}
		normalized[key] = ft
	}
	c.FileTypes = normalized
}

func (c *Config) normalizeMergeRules() {
	for i := range c.MergeRules {
		rule := &c.MergeRules[i]
		rule.OutputMapType = strings.ToUpper(strings.TrimSpace(rule.OutputMapType))
		inputs := make(map[string]string, len(rule.Inputs))
		for channel, mapType := range rule.Inputs {
			inputs[strings.ToUpper(strings.TrimSpace(channel))] = strings.ToUpper(strings.TrimSpace(mapType))
		}
		rule.Inputs = inputs
		defaults := make(map[string]float64, len(rule.Defaults))
		for channel, value := range rule.Defaults {
			defaults[strings.ToUpper(strings.TrimSpace(channel))] = value
		}
		rule.Defaults = defaults
		rule.ChannelOrder = strings.ToUpper(strings.TrimSpace(rule.ChannelOrder))
		if rule.ChannelOrder == "" {
			rule.ChannelOrder = defaultChannelOrder
		}
		rule.BitDepth = strings.ToLower(strings.TrimSpace(rule.BitDepth))
		switch rule.BitDepth {
		case "", "respect_inputs":
			rule.BitDepth = BitDepthRespect
		}
		rule.DimensionPolicy = lowerOr(rule.DimensionPolicy, DimensionUseLargest)
	}
}

func normalizeFormat(value, fallback string) string {
	value = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), ".")
	switch value {
	case "":
		return fallback
	case "jpeg":
		return FormatJPG
	case "tiff":
		return FormatTIFF
	default:
		return value
	}
}

func lowerOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func upperAll(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (c *Config) normalizeNotifications() {
	n := &c.Notifications
	n.NtfyTopic = strings.TrimSpace(n.NtfyTopic)
	if n.RequestTimeout == 0 {
		n.RequestTimeout = defaultNotifyTimeout
	}
}
