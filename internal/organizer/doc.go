// Package organizer resolves library paths from token patterns and copies
// finished artifacts into place.
//
// Patterns use case-insensitive bracketed tokens such as [assetname],
// [maptype], [resolution], and [ext]. [date], [time], and [applicationpath]
// are always available; [incrementingvalue] (alias [####], whose width is the
// number of #) is derived by scanning existing output directories, and [sha5]
// is the first five hex characters of the source input's SHA256. Unknown
// tokens are left untouched; known tokens without a value are an error.
//
// Copies honor the overwrite policy: an existing destination is kept unless
// overwrite is enabled.
package organizer
