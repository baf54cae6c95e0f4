package service

import (
	"context"
	"math"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

// MetadataFetcher scrapes a page. It reports failure in the result rather
// than as an error.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) domain.MetadataResult
}

// Enricher fills in the fields of an item the user left empty from the
// page's metadata
type Enricher struct {
	items    *ItemService
	settings *SettingsService
	fetcher  MetadataFetcher
	logger   *logger.Logger
}

// NewEnricher creates a new enricher
func NewEnricher(items *ItemService, settings *SettingsService, fetcher MetadataFetcher, log *logger.Logger) *Enricher {
	return &Enricher{
		items:    items,
		settings: settings,
		fetcher:  fetcher,
		logger:   log,
	}
}

// Preview fetches metadata for url without touching any item. Reading time
// uses the configured reading speed.
func (e *Enricher) Preview(ctx context.Context, url string) domain.MetadataResult {
	result := e.fetcher.Fetch(ctx, domain.NormalizeURL(url))
	if result.WordCount != nil {
		minutes := ReadingMinutes(*result.WordCount, e.readingSpeed(ctx))
		result.EstMinutes = &minutes
	}
	return result
}

// Enrich fetches metadata for the item and stores whatever fills a gap.
// A failed fetch leaves the item untouched and is not an error.
func (e *Enricher) Enrich(ctx context.Context, itemID string) (*domain.Item, error) {
	item, err := e.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	result := e.Preview(ctx, item.URL)
	if !result.Success {
		e.logger.Warn("Metadata fetch failed for item %s: %s", itemID, result.Error)
		return item, nil
	}

	patch := enrichmentPatch(*item, result)
	updated, err := e.items.Update(ctx, itemID, patch)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Item %s enriched from %s", itemID, item.Domain)
	return updated, nil
}

func enrichmentPatch(item domain.Item, m domain.MetadataResult) domain.ItemPatch {
	fetched := true
	patch := domain.ItemPatch{MetadataFetched: &fetched}

	// the title defaults to the URL when the user gave none
	if m.Title != nil && *m.Title != "" && (item.Title == "" || item.Title == item.URL) {
		patch.Title = m.Title
	}
	if m.Description != nil && *m.Description != "" && (item.Description == nil || *item.Description == "") {
		patch.Description = m.Description
	}
	if m.Favicon != nil && *m.Favicon != "" &&
		(item.Favicon == nil || *item.Favicon == domain.FaviconURL(item.Domain)) {
		patch.Favicon = m.Favicon
	}
	if m.WordCount != nil && item.WordCount == nil {
		patch.WordCount = m.WordCount
	}
	if m.EstMinutes != nil && item.EstMinutes == nil {
		patch.EstMinutes = m.EstMinutes
	}
	return patch
}

func (e *Enricher) readingSpeed(ctx context.Context) int {
	settings, err := e.settings.Get(ctx)
	if err != nil || settings.ReadingSpeed <= 0 {
		return domain.DefaultSettings().ReadingSpeed
	}
	return settings.ReadingSpeed
}

// ReadingMinutes estimates reading time, never less than one minute
func ReadingMinutes(words, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		wordsPerMinute = domain.DefaultSettings().ReadingSpeed
	}
	return max(1, int(math.Ceil(float64(words)/float64(wordsPerMinute))))
}
