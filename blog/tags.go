// ABOUTME: Tag list helpers for the blog form: parsing comma-separated input, adding, and removing.
// ABOUTME: Tags are trimmed and de-duplicated case-insensitively, keeping the first spelling seen.

package blog

import "strings"

// ParseTags splits comma-separated input into a cleaned tag list.
func ParseTags(input string) []string {
	return AddTag(nil, strings.Split(input, ",")...)
}

// AddTag appends tags not already present (compared case-insensitively).
// Blank entries are ignored.
func AddTag(tags []string, add ...string) []string {
	seen := make(map[string]bool, len(tags)+len(add))
	out := make([]string, 0, len(tags)+len(add))
	for _, t := range append(append([]string{}, tags...), add...) {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, t)
	}
	return out
}

// RemoveTag drops tag (compared case-insensitively).
func RemoveTag(tags []string, tag string) []string {
	k := strings.ToLower(strings.TrimSpace(tag))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if strings.ToLower(t) != k {
			out = append(out, t)
		}
	}
	return out
}
