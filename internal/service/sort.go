package service

import (
	"slices"
	"strings"

	"readinglist/internal/domain"
)

// SortItems returns a sorted copy of items. Ties keep their input order.
// Unknown sort options fall back to date added.
func SortItems(items []domain.Item, by domain.SortOption, dir domain.SortDirection) []domain.Item {
	out := slices.Clone(items)

	cmp := compareBy(by)
	if dir == domain.SortDesc {
		asc := cmp
		cmp = func(a, b domain.Item) int { return asc(b, a) }
	}

	slices.SortStableFunc(out, cmp)
	return out
}

func compareBy(by domain.SortOption) func(a, b domain.Item) int {
	switch by {
	case domain.SortTitle:
		return func(a, b domain.Item) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	case domain.SortPriority:
		return func(a, b domain.Item) int {
			return a.Priority.Rank() - b.Priority.Rank()
		}
	case domain.SortReadingTime:
		return func(a, b domain.Item) int {
			return minutesOf(a) - minutesOf(b)
		}
	case domain.SortDomain:
		return func(a, b domain.Item) int {
			return strings.Compare(a.Domain, b.Domain)
		}
	default:
		return func(a, b domain.Item) int {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
}

func minutesOf(item domain.Item) int {
	if item.EstMinutes == nil {
		return 0
	}
	return *item.EstMinutes
}
