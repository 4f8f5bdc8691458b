package cache

import "strings"

// NormalizeKey builds the cache key for a title/artist pair.
// Case and surrounding whitespace are ignored, so "  Imagine " and "imagine"
// land on the same entry.
func NormalizeKey(title, artist string) string {
	return strings.ToLower(strings.TrimSpace(title)) + " - " + strings.ToLower(strings.TrimSpace(artist))
}

// PodcastKey builds the cache key for a mood's podcast listing
func PodcastKey(mood string) string {
	return "podcasts:" + strings.ToLower(strings.TrimSpace(mood))
}
