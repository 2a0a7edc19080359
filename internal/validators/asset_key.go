// Package validators checks operator input: asset keys and session scripts.
package validators

import (
	"fmt"
	"regexp"
	"strings"
)

const maxAssetKeyLength = 1024

// segmentPattern matches one path segment of a key, e.g. "alice" or "sound.webm"
var segmentPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9._-]*[a-zA-Z0-9_])?$`)

// ValidateAssetKey validates an asset key and returns it trimmed.
//
// A key is one or more segments separated by '/', such as "sound.webm" or
// "alice/sound.webm". Each segment starts with an alphanumeric character and
// may contain dots, underscores and hyphens. Keys must not start or end with
// '/', contain empty segments, or use "." and ".." segments.
func ValidateAssetKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("asset key cannot be empty")
	}
	if len(key) > maxAssetKeyLength {
		return "", fmt.Errorf("asset key exceeds maximum length of %d characters", maxAssetKeyLength)
	}

	for i, segment := range strings.Split(key, "/") {
		if segment == "" {
			return "", fmt.Errorf("asset key %q has an empty segment at position %d", key, i)
		}
		if !segmentPattern.MatchString(segment) {
			return "", fmt.Errorf(
				"asset key segment %q is invalid. Segments must start with an alphanumeric character "+
					"and may contain dots, underscores and hyphens",
				segment,
			)
		}
	}
	return key, nil
}
