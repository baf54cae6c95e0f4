package service

import (
	"context"
	"errors"
	"fmt"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/notify"
)

// UsageCounter keeps every tag's usage count equal to the number of items
// referencing it. Counts are recomputed from the item table, never adjusted
// incrementally, so a recompute also repairs earlier drift.
type UsageCounter struct {
	items  ItemRepository
	tags   TagRepository
	tagBus *notify.Bus
	logger *logger.Logger
}

// NewUsageCounter creates a usage counter that publishes on tagBus
func NewUsageCounter(items ItemRepository, tags TagRepository, tagBus *notify.Bus, log *logger.Logger) *UsageCounter {
	return &UsageCounter{
		items:  items,
		tags:   tags,
		tagBus: tagBus,
		logger: log,
	}
}

// Recompute refreshes the usage count of each given tag. Tags that no longer
// exist are skipped.
func (u *UsageCounter) Recompute(ctx context.Context, tagIDs ...string) error {
	ids := uniqueStrings(tagIDs)
	if len(ids) == 0 {
		return nil
	}

	updated := 0
	for _, id := range ids {
		count, err := u.items.CountByTag(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count usage of tag %s: %w", id, err)
		}
		if err := u.tags.SetUsageCount(ctx, id, count); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				u.logger.Debug("Skipping usage count for deleted tag %s", id)
				continue
			}
			return persistErr("failed to store usage count", err)
		}
		updated++
	}

	if updated > 0 {
		u.tagBus.Publish()
	}
	u.logger.Debug("Recomputed usage counts for %d tags", updated)
	return nil
}

// RecountAll recomputes the usage count of every tag
func (u *UsageCounter) RecountAll(ctx context.Context) error {
	tags, err := u.tags.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tags: %w", err)
	}

	ids := make([]string, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}

	u.logger.Info("Recounting usage for %d tags", len(ids))
	return u.Recompute(ctx, ids...)
}

// uniqueStrings drops duplicates and empty strings, keeping first occurrence
// order
func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// changedTags returns the tags present in exactly one of before and after
func changedTags(before, after []string) []string {
	inBefore := make(map[string]bool, len(before))
	for _, t := range before {
		inBefore[t] = true
	}
	inAfter := make(map[string]bool, len(after))
	for _, t := range after {
		inAfter[t] = true
	}

	var out []string
	for _, t := range before {
		if !inAfter[t] {
			out = append(out, t)
		}
	}
	for _, t := range after {
		if !inBefore[t] {
			out = append(out, t)
		}
	}
	return uniqueStrings(out)
}
