package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"readinglist/internal/domain"
)

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	items := []domain.Item{
		{Status: domain.StatusUnread, Priority: domain.PriorityHigh, Domain: "a.com", EstMinutes: intp(10)},
		{Status: domain.StatusReading, Priority: domain.PriorityHigh, Domain: "a.com", EstMinutes: intp(5)},
		{Status: domain.StatusCompleted, Priority: domain.PriorityLow, Domain: "b.com", UpdatedAt: now.AddDate(0, 0, -2)},
		{Status: domain.StatusCompleted, Priority: domain.PriorityLow, Domain: "b.com", UpdatedAt: now.AddDate(0, 0, -20)},
		{Status: domain.StatusCompleted, Priority: domain.PriorityMedium, Domain: "c.com", UpdatedAt: now.AddDate(0, -3, 0)},
		{Status: domain.StatusArchived, Priority: domain.PriorityMedium, Domain: "c.com", EstMinutes: intp(1)},
	}

	stats := ComputeStats(items, now)

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 1, stats.Unread)
	assert.Equal(t, 1, stats.Reading)
	assert.Equal(t, 3, stats.Completed)
	assert.Equal(t, 1, stats.Archived)
	assert.Equal(t, stats.Total, stats.Unread+stats.Reading+stats.Completed+stats.Archived)
	assert.Equal(t, map[domain.Priority]int{
		domain.PriorityLow: 2, domain.PriorityMedium: 2, domain.PriorityHigh: 2, domain.PriorityUrgent: 0,
	}, stats.ByPriority)
	assert.Equal(t, map[string]int{"a.com": 2, "b.com": 2, "c.com": 2}, stats.ByDomain)
	assert.Equal(t, 16, stats.TotalReadingTime)
	assert.Equal(t, 3.0, stats.AverageReadingTime)
	assert.Equal(t, 1, stats.CompletedThisWeek)
	assert.Equal(t, 2, stats.CompletedThisMonth)
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil, time.Now())

	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.AverageReadingTime)
	assert.Len(t, stats.ByPriority, 4)
	assert.Empty(t, stats.ByDomain)
}
