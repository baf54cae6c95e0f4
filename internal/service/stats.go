package service

import (
	"math"
	"time"

	"readinglist/internal/domain"
)

// ComputeStats summarizes items as of now. An item counts as completed
// this week or month when it is completed and was last updated within the
// trailing 7 or 30 days.
func ComputeStats(items []domain.Item, now time.Time) domain.ItemStats {
	stats := domain.ItemStats{
		Total:      len(items),
		ByPriority: make(map[domain.Priority]int, len(domain.Priorities)),
		ByDomain:   make(map[string]int),
	}
	for _, p := range domain.Priorities {
		stats.ByPriority[p] = 0
	}

	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	for _, item := range items {
		switch item.Status {
		case domain.StatusUnread:
			stats.Unread++
		case domain.StatusReading:
			stats.Reading++
		case domain.StatusCompleted:
			stats.Completed++
			if !item.UpdatedAt.Before(weekAgo) {
				stats.CompletedThisWeek++
			}
			if !item.UpdatedAt.Before(monthAgo) {
				stats.CompletedThisMonth++
			}
		case domain.StatusArchived:
			stats.Archived++
		}

		stats.ByPriority[item.Priority]++
		stats.ByDomain[item.Domain]++
		stats.TotalReadingTime += minutesOf(item)
	}

	if len(items) > 0 {
		stats.AverageReadingTime = math.Round(float64(stats.TotalReadingTime) / float64(len(items)))
	}
	return stats
}
