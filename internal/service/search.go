package service

import (
	"strings"

	"readinglist/internal/domain"
)

// MatchesQuery reports whether the lowercase query is a substring of the
// item's title, domain, description or notes. An empty query matches.
func MatchesQuery(item domain.Item, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)

	if strings.Contains(strings.ToLower(item.Title), q) || strings.Contains(strings.ToLower(item.Domain), q) {
		return true
	}
	if item.Description != nil && strings.Contains(strings.ToLower(*item.Description), q) {
		return true
	}
	return item.Notes != nil && strings.Contains(strings.ToLower(*item.Notes), q)
}

func filterByQuery(items []domain.Item, query string) []domain.Item {
	if query == "" {
		return items
	}
	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if MatchesQuery(item, query) {
			out = append(out, item)
		}
	}
	return out
}
