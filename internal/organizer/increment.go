package organizer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var incrementPattern = regexp.MustCompile(`(?i)\[(incrementingvalue|#+)\]`)

// DefaultIncrementWidth is the digit count of [incrementingvalue].
const DefaultIncrementWidth = 2

// NextIncrement returns the zero-padded value one above the highest number
// already used by directories that match the increment segment of pattern
// under base. Tokens in the parent path are resolved from values; tokens in
// the increment segment itself are wildcards. A pattern without an increment
// token yields "00".
func NextIncrement(base, pattern string, values Values, now time.Time) (string, error) {
	loc := incrementPattern.FindStringSubmatchIndex(pattern)
	if loc == nil {
		return fmt.Sprintf("%0*d", DefaultIncrementWidth, 0), nil
	}
	width := DefaultIncrementWidth
	if inner := pattern[loc[2]:loc[3]]; strings.HasPrefix(inner, "#") {
		width = len(inner)
	}

	rawPrefix, rawSuffix := pattern[:loc[0]], pattern[loc[1]:]
	parentPattern, segPrefix := "", rawPrefix
	if idx := strings.LastIndex(rawPrefix, "/"); idx >= 0 {
		parentPattern, segPrefix = rawPrefix[:idx], rawPrefix[idx+1:]
	}
	if idx := strings.Index(rawSuffix, "/"); idx >= 0 {
		rawSuffix = rawSuffix[:idx]
	}
	parentRel, err := Resolve(parentPattern, values, now)
	if err != nil {
		return "", err
	}

	matcher := regexp.MustCompile("^" + segmentRegexp(segPrefix) + `(\d{` + strconv.Itoa(width) + `})` + segmentRegexp(rawSuffix) + "$")
	entries, err := os.ReadDir(filepath.Join(base, filepath.FromSlash(parentRel)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("scan for incrementing value: %w", err)
	}
	highest := -1
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m := matcher.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%0*d", width, highest+1), nil
}

func segmentRegexp(segment string) string {
	var b strings.Builder
	last := 0
	for _, loc := range tokenPattern.FindAllStringIndex(segment, -1) {
		b.WriteString(regexp.QuoteMeta(segment[last:loc[0]]))
		b.WriteString(".*")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(segment[last:]))
	return b.String()
}
