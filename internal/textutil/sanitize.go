package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	unsafeRun     = regexp.MustCompile(`[^\p{L}\p{N}_.\-]+`)
	underscoreRun = regexp.MustCompile(`_+`)
)

// InvalidName replaces names that sanitize to nothing.
const InvalidName = "invalid_name"

// SanitizeFileName makes name safe as a single path segment.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = unsafeRun.ReplaceAllString(name, "_")
	name = underscoreRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return InvalidName
	}
	return name
}
