package memes

import "strings"

// Categories is the fixed set of meme category tags.
var Categories = []string{
	"funny", "political", "animal", "sports", "tech", "music", "movies",
	"gaming", "random", "science", "history", "food", "travel", "art",
	"fashion", "memes", "health", "education", "nature", "news",
	"literature", "automotive", "space", "business", "comics",
	"philosophy", "celebrity", "psychology",
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// NormalizeCategory lowercases and trims a category name.
func NormalizeCategory(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsCategory reports whether name (case-insensitive) is a known category.
func IsCategory(name string) bool {
	_, ok := categorySet[NormalizeCategory(name)]
	return ok
}
