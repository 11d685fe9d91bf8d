package stages

import "texforge/internal/stage"

// Default returns a fresh, ordered handler list for one asset. Handlers hold
// a per-asset logger, so each asset execution gets its own list.
func Default() []stage.Handler {
	return []stage.Handler{
		NewSupplier(),
		NewSkip(),
		NewMetadataInit(),
		NewFilter(),
		NewGlossToRough(),
		NewAlphaToMask(),
		NewNormalGreen(),
		NewPrepareItems(),
		NewProcessItems(),
		NewOrganize(),
		NewFinalize(),
	}
}
