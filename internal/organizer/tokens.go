package organizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Token names, lower-cased.
const (
	TokenAssetName       = "assetname"
	TokenAssetType       = "assettype"
	TokenSupplier        = "supplier"
	TokenMapType         = "maptype"
	TokenResolution      = "resolution"
	TokenExt             = "ext"
	TokenIncrement       = "incrementingvalue"
	TokenIncrementAlias  = "####"
	TokenDate            = "date"
	TokenTime            = "time"
	TokenSHA5            = "sha5"
	TokenApplicationPath = "applicationpath"
)

var knownTokens = map[string]bool{
	TokenAssetName:       true,
	TokenAssetType:       true,
	TokenSupplier:        true,
	TokenMapType:         true,
	TokenResolution:      true,
	TokenExt:             true,
	TokenIncrement:       true,
	TokenDate:            true,
	TokenTime:            true,
	TokenSHA5:            true,
	TokenApplicationPath: true,
}

var tokenPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// Values maps lower-cased token names to replacement strings.
type Values map[string]string

// Set stores value under the lower-cased token name.
func (v Values) Set(token, value string) {
	v[strings.ToLower(token)] = value
}

// With returns a copy of v with token set.
func (v Values) With(token, value string) Values {
	out := make(Values, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out.Set(token, value)
	return out
}

func lookupKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if strings.Trim(name, "#") == "" {
		return TokenIncrement
	}
	return name
}

// Resolve replaces every token in pattern. Dynamic tokens ([date], [time],
// [applicationpath]) default from now and the working directory but can be
// overridden through values.
func Resolve(pattern string, values Values, now time.Time) (string, error) {
	var missing []string
	out := tokenPattern.ReplaceAllStringFunc(pattern, func(match string) string {
		key := lookupKey(match[1 : len(match)-1])
		if value, ok := values[key]; ok {
			return value
		}
		if value, ok := dynamicValue(key, now); ok {
			return value
		}
		if knownTokens[key] {
			missing = append(missing, match)
		}
		return match
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("pattern %q: no value for %s", pattern, strings.Join(missing, ", "))
	}
	return out, nil
}

func dynamicValue(key string, now time.Time) (string, bool) {
	switch key {
	case TokenDate:
		return now.Format("20060102"), true
	case TokenTime:
		return now.Format("150405"), true
	case TokenApplicationPath:
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		return wd, true
	}
	return "", false
}

// HasToken reports whether pattern references token (case-insensitive).
func HasToken(pattern, token string) bool {
	token = lookupKey(token)
	for _, m := range tokenPattern.FindAllStringSubmatch(pattern, -1) {
		if lookupKey(m[1]) == token {
			return true
		}
	}
	return false
}
