package organizer

import (
	"fmt"
	"strings"

	"texforge/internal/fileutil"
)

// SHA5 returns the first five hex characters of the SHA256 of the source
// input. Archives are hashed by content, directories by their file listing.
func SHA5(path string) (string, error) {
	sum, err := fileutil.HashPath(path)
	if err != nil {
		return "", fmt.Errorf("hash source input: %w", err)
	}
	return strings.ToLower(sum[:5]), nil
}

// Place copies src to dst. When dst already exists and overwrite is false the
// existing file is kept and Place reports copied=false.
func Place(src, dst string, overwrite bool) (bool, error) {
	if fileutil.Exists(dst) && !overwrite {
		return false, nil
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return false, err
	}
	return true, nil
}
