// Package asset defines the mutable state threaded through every pipeline
// stage for one asset.
//
// A Context is created by the orchestrator when an asset enters the pipeline
// and discarded once the post-item stages finish or the asset fails. It owns
// the per-asset load cache (so each physical file is decoded at most once),
// the filtered map list, the exploded processing items, the metadata document
// under construction, and the skip/failure flags. A Context is never shared
// between goroutines; concurrent workers each build their own.
package asset
