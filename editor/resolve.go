// ABOUTME: Submission-time resolution of placeholder keys into encoded image payloads.
// ABOUTME: Also scans content for image sources that still point at placeholder keys.

package editor

import (
	"strings"

	"golang.org/x/net/html"
)

// ResolveContent replaces every occurrence of each pending key in raw with its
// payload. Keys missing from raw are skipped and their payloads dropped.
// Keys are disjoint fixed-width tokens, so substitution order does not matter.
func ResolveContent(raw string, pending map[string]string) string {
	if len(pending) == 0 || !strings.Contains(raw, PlaceholderPrefix) {
		return raw
	}
	pairs := make([]string, 0, 2*len(pending))
	for key, payload := range pending {
		if key == "" {
			continue
		}
		pairs = append(pairs, key, payload)
	}
	if len(pairs) == 0 {
		return raw
	}
	return strings.NewReplacer(pairs...).Replace(raw)
}

// ReferencedKeys returns the placeholder keys used as <img src> values in
// content, one entry per occurrence, in document order.
func ReferencedKeys(content string) []string {
	if !strings.Contains(content, PlaceholderPrefix) {
		return nil
	}

	var keys []string
	z := html.NewTokenizer(strings.NewReader(content))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return keys
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			for {
				attr, val, more := z.TagAttr()
				if string(attr) == "src" && IsPlaceholderKey(string(val)) {
					keys = append(keys, string(val))
				}
				if !more {
					break
				}
			}
		}
	}
}

// CountKey returns how many times key occurs literally in text.
func CountKey(text, key string) int {
	if key == "" {
		return 0
	}
	return strings.Count(text, key)
}

// HasPlaceholders reports whether s still contains a pending-image key.
func HasPlaceholders(s string) bool {
	return strings.Contains(s, PlaceholderPrefix)
}
