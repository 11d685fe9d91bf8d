package stages

import (
	"fmt"
	"strings"

	"texforge/internal/asset"
	"texforge/internal/config"
	"texforge/internal/imaging"
	"texforge/internal/services"
)

// DefaultInput marks a merged channel filled from the rule's default value.
const DefaultInput = "default"

// resolveMergeInput finds the map feeding a merge channel: the exact key
// first, then the first variant of the type.
func resolveMergeInput(ac *asset.Context, mapType string) (*asset.MapFile, bool) {
	if file, ok := ac.FileByKey(mapType); ok {
		return file, true
	}
	return ac.FileByKey(mapType + "-1")
}

// mergeApplies reports whether at least one declared input of rule exists.
func mergeApplies(ac *asset.Context, rule config.MergeRule) bool {
	for _, mapType := range rule.Inputs {
		if _, ok := resolveMergeInput(ac, mapType); ok {
			return true
		}
	}
	return false
}

type mergeChannel struct {
	letter  string
	index   int
	key     string
	img     *imaging.Image
	value   float64
	present bool
}

// Merge packs channels of the asset's maps into one image according to rule.
// Missing inputs use the rule's default; a missing input without a default
// fails the asset. Inputs whose size differs from the chosen dimensions are
// resized to it.
func Merge(ac *asset.Context, rule config.MergeRule) (*asset.MergedMap, error) {
	order := strings.ToUpper(rule.ChannelOrder)
	if order == "" {
		order = "RGB"
	}

	channels := make([]mergeChannel, 0, len(order))
	for _, r := range order {
		letter := string(r)
		ch := mergeChannel{letter: letter, index: config.ChannelIndex(letter)}
		if ch.index < 0 {
			return nil, services.Wrap(services.ErrMerge, NameCoreLoop, rule.OutputMapType, fmt.Sprintf("channel %q is not R, G, B, or A", letter), nil)
		}
		if mapType, declared := rule.Inputs[letter]; declared {
			if file, ok := resolveMergeInput(ac, mapType); ok {
				img, err := loadSource(ac, NameCoreLoop, file)
				if err != nil {
					return nil, err
				}
				ch.key, ch.img, ch.present = file.Key, img, true
			}
		}
		if !ch.present {
			value, ok := rule.Defaults[letter]
			if !ok {
				return nil, services.Wrap(services.ErrMerge, NameCoreLoop, rule.OutputMapType, fmt.Sprintf("channel %s: input %s missing and no default declared", letter, rule.Inputs[letter]), nil)
			}
			ch.key, ch.value = DefaultInput, value
		}
		channels = append(channels, ch)
	}

	width, height, err := mergeDimensions(rule, channels)
	if err != nil {
		return nil, err
	}

	merged := &asset.MergedMap{MapType: rule.OutputMapType}
	resized := make(map[string]*imaging.Image)
	planes := make([][]float32, 0, len(channels))
	maxInputDepth := 8
	for _, ch := range channels {
		merged.Inputs = append(merged.Inputs, ch.key)
		if !ch.present {
			planes = append(planes, imaging.ConstantPlane(width, height, float32(ch.value)))
			continue
		}
		maxInputDepth = max(maxInputDepth, ch.img.BitDepth)
		src := ch.img
		if src.Width != width || src.Height != height {
			if cached, ok := resized[ch.key]; ok {
				src = cached
			} else {
				merged.Notes = append(merged.Notes, fmt.Sprintf("%s conformed from %dx%d to %dx%d (%s)",
					ch.key, src.Width, src.Height, width, height, rule.DimensionPolicy))
				src = imaging.Resize(src, width, height, ac.Config.Processing.Interpolation)
				resized[ch.key] = src
			}
		}
		planes = append(planes, append([]float32(nil), src.ChannelPlane(ch.index)...))
	}

	switch rule.BitDepth {
	case config.BitDepthForce8:
		merged.BitDepth = 8
	case config.BitDepthForce16:
		merged.BitDepth = 16
	default:
		merged.BitDepth = 8
		if maxInputDepth > 8 {
			merged.BitDepth = 16
		}
	}
	merged.Image = imaging.Compose(width, height, merged.BitDepth, planes)
	return merged, nil
}

// mergeDimensions applies the rule's dimension policy to the present inputs.
func mergeDimensions(rule config.MergeRule, channels []mergeChannel) (int, int, error) {
	var present []mergeChannel
	for _, ch := range channels {
		if ch.present {
			present = append(present, ch)
		}
	}
	if len(present) == 0 {
		return 0, 0, services.Wrap(services.ErrMerge, NameCoreLoop, rule.OutputMapType, "no input maps present", nil)
	}

	first := present[0].img
	switch rule.DimensionPolicy {
	case config.DimensionUseFirst:
		return first.Width, first.Height, nil
	case config.DimensionError:
		for _, ch := range present[1:] {
			if ch.img.Width != first.Width || ch.img.Height != first.Height {
				return 0, 0, services.Wrap(services.ErrMerge, NameCoreLoop, rule.OutputMapType,
					fmt.Sprintf("input %s is %dx%d but %s is %dx%d", ch.key, ch.img.Width, ch.img.Height,
						present[0].key, first.Width, first.Height), nil)
			}
		}
		return first.Width, first.Height, nil
	default:
		best := first
		for _, ch := range present[1:] {
			if ch.img.Width*ch.img.Height > best.Width*best.Height {
				best = ch.img
			}
		}
		return best.Width, best.Height, nil
	}
}
