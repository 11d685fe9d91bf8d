package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	if err := c.validateResolutions(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateFileTypes(); err != nil {
		return err
	}
	if err := c.validateMergeRules(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.WorkspaceDir) == "" {
		return errors.New("paths.workspace_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
}

func (c *Config) validateProcessing() error {
	p := c.Processing
	if p.Workers < 1 {
		return errors.New("processing.workers must be at least 1")
	}
	switch p.Parallelism {
	case ParallelismAsset, ParallelismSource:
	default:
		return fmt.Errorf("processing.parallelism must be %q or %q", ParallelismAsset, ParallelismSource)
	}
	switch p.PotMode {
	case PotModeNone, PotModeDownscale:
	default:
		return fmt.Errorf("processing.pot_mode must be %q or %q", PotModeNone, PotModeDownscale)
	}
	switch p.Interpolation {
	case InterpolationCatmullRom, InterpolationBiLinear, InterpolationApproxBiLinear, InterpolationNearest:
	default:
		return fmt.Errorf("processing.interpolation %q is not supported", p.Interpolation)
	}
	if p.LowResFallbackEnabled && p.LowResThreshold < 1 {
		return errors.New("processing.lowres_threshold must be positive when the fallback is enabled")
	}
	return nil
}

func (c *Config) validateResolutions() error {
	if len(c.Resolutions) == 0 {
		return errors.New("resolutions must define at least one entry")
	}
	keys := make([]string, 0, len(c.Resolutions))
	for key := range c.Resolutions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == "" {
			return errors.New("resolutions keys must not be empty")
		}
		if strings.EqualFold(key, LowResKey) {
			return fmt.Errorf("resolutions.%s is reserved for the low-resolution fallback", key)
		}
		if c.Resolutions[key] < 1 {
			return fmt.Errorf("resolutions.%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateOutput() error {
	o := c.Output
	lowerPattern := strings.ToLower(o.FilenamePattern)
	for _, token := range []string{"[maptype]", "[resolution]"} {
		if !strings.Contains(lowerPattern, token) {
			return fmt.Errorf("output.filename_pattern must contain %s", token)
		}
	}
	lowerDir := strings.ToLower(o.DirectoryPattern)
	for _, token := range []string{"[maptype]", "[resolution]", "[ext]"} {
		if strings.Contains(lowerDir, token) {
			return fmt.Errorf("output.directory_pattern must not contain %s", token)
		}
	}
	if strings.Contains(o.DirectoryPattern, "..") {
		return errors.New("output.directory_pattern must stay inside output_dir")
	}
	if strings.Contains(o.FilenamePattern, "/") {
		return errors.New("output.filename_pattern must not contain path separators")
	}
	if strings.Contains(o.ExtraSubdir, "..") {
		return errors.New("output.extra_subdir must stay inside the asset directory")
	}
	for name, value := range map[string]string{
		"output.format_8bit":           o.Format8Bit,
		"output.format_16bit_primary":  o.Format16BitPrimary,
		"output.format_16bit_fallback": o.Format16BitFallback,
	} {
		if !IsSupportedFormat(value) {
			return fmt.Errorf("%s must be png, jpg, or tif (got %q)", name, value)
		}
	}
	if o.JPGQuality < 1 || o.JPGQuality > 100 {
		return errors.New("output.jpg_quality must be between 1 and 100")
	}
	if o.PNGCompression < 0 || o.PNGCompression > 9 {
		return errors.New("output.png_compression must be between 0 and 9")
	}
	if o.JPGResolutionThreshold < 0 {
		return errors.New("output.jpg_resolution_threshold must not be negative")
	}
	return nil
}

func (c *Config) validateFileTypes() error {
	for key, ft := range c.FileTypes {
		switch ft.BitDepthRule {
		case BitDepthRespect, BitDepthForce8:
		default:
			return fmt.Errorf("file_types.%s.bit_depth_rule must be %q or %q", key, BitDepthRespect, BitDepthForce8)
		}
		switch ft.Kind {
		case KindColor, KindGloss, KindRough, KindNormal, KindMask, KindData:
		default:
			return fmt.Errorf("file_types.%s.kind %q is not supported", key, ft.Kind)
		}
	}
	return nil
}

func (c *Config) validateMergeRules() error {
	for i, rule := range c.MergeRules {
		prefix := fmt.Sprintf("merge_rules[%d]", i)
		if rule.OutputMapType == "" {
			return fmt.Errorf("%s.output_map_type must be set", prefix)
		}
		if len(rule.Inputs) == 0 {
			return fmt.Errorf("%s.inputs must name at least one channel", prefix)
		}
		for channel := range rule.Inputs {
			if ChannelIndex(channel) < 0 {
				return fmt.Errorf("%s.inputs: channel %q must be R, G, B, or A", prefix, channel)
			}
		}
		for channel, value := range rule.Defaults {
			if ChannelIndex(channel) < 0 {
				return fmt.Errorf("%s.defaults: channel %q must be R, G, B, or A", prefix, channel)
			}
			if value < 0 || value > 1 {
				return fmt.Errorf("%s.defaults.%s must be between 0 and 1", prefix, channel)
			}
		}
		if len(rule.ChannelOrder) < 1 || len(rule.ChannelOrder) > 4 {
			return fmt.Errorf("%s.channel_order must have between 1 and 4 channels", prefix)
		}
		seen := map[rune]bool{}
		for _, ch := range rule.ChannelOrder {
			if ChannelIndex(string(ch)) < 0 || seen[ch] {
				return fmt.Errorf("%s.channel_order %q must list distinct R, G, B, A channels", prefix, rule.ChannelOrder)
			}
			seen[ch] = true
			_, hasInput := rule.Inputs[string(ch)]
			_, hasDefault := rule.Defaults[string(ch)]
			if !hasInput && !hasDefault {
				return fmt.Errorf("%s: channel %c has neither an input nor a default", prefix, ch)
			}
		}
		switch rule.BitDepth {
		case BitDepthRespect, BitDepthForce8, BitDepthForce16:
		default:
			return fmt.Errorf("%s.bit_depth must be respect_inputs, force_8bit, or force_16bit", prefix)
		}
		switch rule.DimensionPolicy {
		case DimensionUseLargest, DimensionUseFirst, DimensionError:
		default:
			return fmt.Errorf("%s.dimension_policy must be use_largest, use_first, or error", prefix)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	n := c.Notifications
	if n.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if n.NtfyTopic != "" && !strings.HasPrefix(n.NtfyTopic, "http://") && !strings.HasPrefix(n.NtfyTopic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL (got %q)", n.NtfyTopic)
	}
	return nil
}
