package config

const (
	defaultOutputDir              = "~/Textures/Library"
	defaultWorkspaceDir           = "~/.local/share/texforge/workspace"
	defaultStateDir               = "~/.local/state/texforge"
	defaultLogFormat              = "auto"
	defaultLogLevel               = "info"
	defaultWorkers                = 1
	defaultParallelism            = ParallelismAsset
	defaultPotMode                = PotModeNone
	defaultInterpolation          = InterpolationCatmullRom
	defaultLowResFallbackEnabled  = true
	defaultLowResThreshold        = 512
	defaultDirectoryPattern       = "[supplier]/[assetname]"
	defaultFilenamePattern        = "[assetname]_[maptype]_[resolution].[ext]"
	defaultExtraSubdir            = "Extra"
	defaultFormat8Bit             = FormatPNG
	defaultFormat16BitPrimary     = FormatPNG
	defaultFormat16BitFallback    = FormatPNG
	defaultJPGQuality             = 95
	defaultPNGCompression         = 6
	defaultJPGResolutionThreshold = 4096
	defaultChannelOrder           = "RGB"
	defaultNotifyTimeout          = 10
)

// Enumerated values accepted by the configuration.
const (
	ParallelismAsset  = "asset"
	ParallelismSource = "source"

	PotModeNone      = "none"
	PotModeDownscale = "pot_downscale"

	InterpolationCatmullRom     = "catmullrom"
	InterpolationBiLinear       = "bilinear"
	InterpolationApproxBiLinear = "approxbilinear"
	InterpolationNearest        = "nearest"

	FormatPNG  = "png"
	FormatJPG  = "jpg"
	FormatTIFF = "tif"

	BitDepthRespect = "respect"
	BitDepthForce8  = "force_8bit"
	BitDepthForce16 = "force_16bit"

	KindColor  = "color"
	KindGloss  = "gloss"
	KindRough  = "rough"
	KindNormal = "normal"
	KindMask   = "mask"
	KindData   = "data"

	DimensionUseLargest = "use_largest"
	DimensionUseFirst   = "use_first"
	DimensionError      = "error"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:    defaultOutputDir,
			WorkspaceDir: defaultWorkspaceDir,
			StateDir:     defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Processing: Processing{
			Workers:               defaultWorkers,
			Parallelism:           defaultParallelism,
			PotMode:               defaultPotMode,
			Interpolation:         defaultInterpolation,
			LowResFallbackEnabled: defaultLowResFallbackEnabled,
			LowResThreshold:       defaultLowResThreshold,
		},
		Resolutions: defaultResolutions(),
		Output: Output{
			DirectoryPattern:       defaultDirectoryPattern,
			FilenamePattern:        defaultFilenamePattern,
			ExtraSubdir:            defaultExtraSubdir,
			Format8Bit:             defaultFormat8Bit,
			Format16BitPrimary:     defaultFormat16BitPrimary,
			Format16BitFallback:    defaultFormat16BitFallback,
			JPGQuality:             defaultJPGQuality,
			PNGCompression:         defaultPNGCompression,
			JPGResolutionThreshold: defaultJPGResolutionThreshold,
			ForceLosslessMapTypes:  []string{"MAP_NRM", "MAP_DISP"},
		},
		Suppliers:  defaultSuppliers(),
		FileTypes:  defaultFileTypes(),
		MergeRules: nil,
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}

func defaultResolutions() map[string]int {
	return map[string]int{
		"8K": 8192,
		"4K": 4096,
		"2K": 2048,
		"1K": 1024,
	}
}

func defaultSuppliers() map[string]Supplier {
	return map[string]Supplier{
		"Poliigon":  {Description: "Poliigon texture library"},
		"AmbientCG": {Description: "ambientCG public domain materials"},
		"PolyHaven": {Description: "Poly Haven public domain assets"},
	}
}

func defaultFileTypes() map[string]FileType {
	return map[string]FileType{
		"MAP_COL":   {Alias: "COL", BitDepthRule: BitDepthForce8, Kind: KindColor},
		"MAP_NRM":   {Alias: "NRM", BitDepthRule: BitDepthRespect, Kind: KindNormal},
		"MAP_GLOSS": {Alias: "GLOSS", BitDepthRule: BitDepthRespect, Kind: KindGloss},
		"MAP_ROUGH": {Alias: "ROUGH", BitDepthRule: BitDepthRespect, Kind: KindRough},
		"MAP_METAL": {Alias: "METAL", BitDepthRule: BitDepthForce8, Kind: KindData},
		"MAP_AO":    {Alias: "AO", BitDepthRule: BitDepthForce8, Kind: KindData},
		"MAP_DISP":  {Alias: "DISP", BitDepthRule: BitDepthRespect, Kind: KindData},
		"MAP_BUMP":  {Alias: "BUMP", BitDepthRule: BitDepthRespect, Kind: KindData},
		"MAP_MASK":  {Alias: "MASK", BitDepthRule: BitDepthForce8, Kind: KindMask},
		"MAP_SPEC":  {Alias: "SPEC", BitDepthRule: BitDepthForce8, Kind: KindData},
		"MAP_SSS":   {Alias: "SSS", BitDepthRule: BitDepthForce8, Kind: KindColor},
		"MAP_IDMAP": {Alias: "IDMAP", BitDepthRule: BitDepthForce8, Kind: KindData},
		"MAP_ORM":   {Alias: "ORM", BitDepthRule: BitDepthRespect, Kind: KindData},
	}
}
