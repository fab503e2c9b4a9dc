// ABOUTME: Placeholder keys and image fragments for pending inline images.
// ABOUTME: Keys are session-local ULID tokens that stand in for encoded payloads until submission.

package editor

import (
	"html"
	"strings"

	"github.com/oklog/ulid/v2"
)

// PlaceholderPrefix marks a pending-image key inside editor text.
const PlaceholderPrefix = "pending-image:"

// NewPlaceholderKey returns a fresh, locally unique placeholder key.
func NewPlaceholderKey() string {
	return PlaceholderPrefix + ulid.Make().String()
}

// IsPlaceholderKey reports whether s looks like a placeholder key.
func IsPlaceholderKey(s string) bool {
	return strings.HasPrefix(s, PlaceholderPrefix) && len(s) > len(PlaceholderPrefix)
}

// ImageTag builds the minimal markup inserted for an image.
func ImageTag(src, alt string) string {
	return `<img src="` + html.EscapeString(src) + `" alt="` + html.EscapeString(alt) + `">`
}

// altText derives alt text from an uploaded file name.
func altText(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "image"
	}
	return name
}
