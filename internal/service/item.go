package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/notify"
)

// ItemService is the item store: validation, timestamps, tag usage upkeep
// and change notification on top of the item repository
type ItemService struct {
	items  ItemRepository
	tags   TagRepository
	opens  OpenRepository
	usage  *UsageCounter
	bus    *notify.Bus
	logger *logger.Logger
	now    clock
}

// NewItemService creates a new item service publishing on bus
func NewItemService(
	items ItemRepository, tags TagRepository, opens OpenRepository,
	usage *UsageCounter, bus *notify.Bus, log *logger.Logger,
) *ItemService {
	log.Info("Item service initialized")
	return &ItemService{
		items:  items,
		tags:   tags,
		opens:  opens,
		usage:  usage,
		bus:    bus,
		logger: log,
		now:    systemClock,
	}
}

// Subscribe registers fn to run after every successful item mutation
func (s *ItemService) Subscribe(fn func()) func() {
	return s.bus.Subscribe(fn)
}

// Add validates and stores a new item
func (s *ItemService) Add(ctx context.Context, n domain.NewItem) (*domain.Item, error) {
	now := s.now()
	item := domain.Item{
		ID:              uuid.NewString(),
		URL:             n.URL,
		Title:           n.Title,
		Description:     n.Description,
		Favicon:         n.Favicon,
		Tags:            n.Tags,
		Priority:        n.Priority,
		Status:          n.Status,
		EstMinutes:      n.EstMinutes,
		WordCount:       n.WordCount,
		Notes:           n.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
		MetadataFetched: n.MetadataFetched,
	}
	return s.insert(ctx, item)
}

// Restore stores an item taken from a backup under a fresh identifier,
// keeping its timestamps
func (s *ItemService) Restore(ctx context.Context, item domain.Item) (*domain.Item, error) {
	now := s.now()
	item.ID = uuid.NewString()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	if item.UpdatedAt.IsZero() {
		item.UpdatedAt = item.CreatedAt
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	if item.LastOpenedAt != nil {
		opened := item.LastOpenedAt.UTC()
		item.LastOpenedAt = &opened
	}
	return s.insert(ctx, item)
}

func (s *ItemService) insert(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if err := s.prepare(ctx, &item); err != nil {
		s.logger.Warn("Item validation failed: %v", err)
		return nil, err
	}

	if err := s.items.Create(ctx, &item); err != nil {
		s.logger.Error("Failed to create item in repository: %v", err)
		return nil, persistErr("failed to add item", err)
	}
	s.bus.Publish()

	if err := s.usage.Recompute(ctx, item.Tags...); err != nil {
		s.logger.Error("Item %s stored but tag usage recompute failed: %v", item.ID, err)
		return &item, fmt.Errorf("%w: %w", errUsage, err)
	}

	s.logger.Info("Item added: id=%s domain=%s", item.ID, item.Domain)
	return &item, nil
}

// prepare normalizes item in place and rejects invalid field values
func (s *ItemService) prepare(ctx context.Context, item *domain.Item) error {
	item.URL = domain.NormalizeURL(item.URL)
	if !domain.IsValidURL(item.URL) {
		return domain.ValidationError{Field: "url", Message: fmt.Sprintf("invalid URL %q", item.URL)}
	}
	item.Domain = domain.ExtractDomain(item.URL)

	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		item.Title = item.URL
	}

	if item.Priority == "" {
		item.Priority = domain.PriorityMedium
	}
	if !item.Priority.Valid() {
		return domain.ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", item.Priority)}
	}
	if item.Status == "" {
		item.Status = domain.StatusUnread
	}
	if !item.Status.Valid() {
		return domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", item.Status)}
	}

	if item.EstMinutes != nil && *item.EstMinutes < 0 {
		return domain.ValidationError{Field: "estMinutes", Message: "must not be negative"}
	}
	if item.WordCount != nil && *item.WordCount < 0 {
		return domain.ValidationError{Field: "wordCount", Message: "must not be negative"}
	}

	if item.Favicon == nil || *item.Favicon == "" {
		favicon := domain.FaviconURL(item.Domain)
		item.Favicon = &favicon
	}

	item.Tags = uniqueStrings(item.Tags)
	for _, id := range item.Tags {
		tag, err := s.tags.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to look up tag %s: %w", id, err)
		}
		if tag == nil {
			return domain.ValidationError{Field: "tags", Message: fmt.Sprintf("unknown tag %q", id)}
		}
	}
	return nil
}

// Update applies patch to the item and refreshes its updatedAt
func (s *ItemService) Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before := slices.Clone(current.Tags)

	next := *current
	applyItemPatch(&next, patch)
	next.UpdatedAt = s.now()
	// updatedAt must move forward even when the clock has not
	if !next.UpdatedAt.After(current.UpdatedAt) {
		next.UpdatedAt = current.UpdatedAt.Add(time.Millisecond)
	}

	if err := s.prepare(ctx, &next); err != nil {
		s.logger.Warn("Item update validation failed: %v", err)
		return nil, err
	}

	if err := s.items.Update(ctx, &next); err != nil {
		s.logger.Error("Failed to update item %s: %v", id, err)
		return nil, persistErr("failed to update item", err)
	}
	s.bus.Publish()

	if changed := changedTags(before, next.Tags); len(changed) > 0 {
		if err := s.usage.Recompute(ctx, changed...); err != nil {
			s.logger.Error("Item %s updated but tag usage recompute failed: %v", id, err)
			return &next, fmt.Errorf("%w: %w", errUsage, err)
		}
	}

	s.logger.Debug("Item updated: id=%s", id)
	return &next, nil
}

func applyItemPatch(item *domain.Item, p domain.ItemPatch) {
	if p.URL != nil {
		item.URL = *p.URL
	}
	if p.Title != nil {
		item.Title = *p.Title
	}
	if p.Description != nil {
		item.Description = p.Description
	}
	if p.Favicon != nil {
		item.Favicon = p.Favicon
	}
	if p.Tags != nil {
		item.Tags = slices.Clone(*p.Tags)
	}
	if p.Priority != nil {
		item.Priority = *p.Priority
	}
	if p.Status != nil {
		item.Status = *p.Status
	}
	if p.EstMinutes != nil {
		item.EstMinutes = p.EstMinutes
	}
	if p.WordCount != nil {
		item.WordCount = p.WordCount
	}
	if p.Notes != nil {
		item.Notes = p.Notes
	}
	if p.LastOpenedAt != nil {
		opened := p.LastOpenedAt.UTC()
		item.LastOpenedAt = &opened
	}
	if p.MetadataFetched != nil {
		item.MetadataFetched = *p.MetadataFetched
	}
}

// Delete removes an item and recomputes usage of the tags it referenced
func (s *ItemService) Delete(ctx context.Context, id string) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.items.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete item %s: %v", id, err)
		return persistErr("failed to delete item", err)
	}
	s.bus.Publish()

	if err := s.usage.Recompute(ctx, current.Tags...); err != nil {
		s.logger.Error("Item %s deleted but tag usage recompute failed: %v", id, err)
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	s.logger.Info("Item deleted: id=%s", id)
	return nil
}

// GetByID returns the item or ErrNotFound
func (s *ItemService) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get item %s: %v", id, err)
		return nil, err
	}
	if item == nil {
		return nil, notFound("item", id)
	}
	return item, nil
}

// GetByURL returns the item saved under url, normalizing it first
func (s *ItemService) GetByURL(ctx context.Context, url string) (*domain.Item, error) {
	normalized := domain.NormalizeURL(url)
	item, err := s.items.GetByURL(ctx, normalized)
	if err != nil {
		s.logger.Error("Failed to get item by url %s: %v", normalized, err)
		return nil, err
	}
	if item == nil {
		return nil, notFound("item with url", normalized)
	}
	return item, nil
}

// GetAll returns every item, most recently updated first
func (s *ItemService) GetAll(ctx context.Context) ([]domain.Item, error) {
	return s.items.GetAll(ctx)
}

// Query returns the items matching every dimension set in filter
func (s *ItemService) Query(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	s.logger.Debug("Querying items: %+v", filter)

	items, err := s.items.Find(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to query items: %v", err)
		return nil, err
	}
	return filterByQuery(items, filter.Query), nil
}

// Search is Query with only the free-text dimension
func (s *ItemService) Search(ctx context.Context, query string) ([]domain.Item, error) {
	return s.Query(ctx, domain.ItemFilter{Query: query})
}

// MarkOpened stamps lastOpenedAt and records the open in the log
func (s *ItemService) MarkOpened(ctx context.Context, id string) (*domain.Item, error) {
	now := s.now()
	item, err := s.Update(ctx, id, domain.ItemPatch{LastOpenedAt: &now})
	if err != nil {
		return nil, err
	}

	if err := s.opens.Create(ctx, id, now); err != nil {
		// lastOpenedAt is already stored; the log only feeds RecentlyOpened
		s.logger.Error("Failed to log open of item %s: %v", id, err)
	}
	return item, nil
}

// RecentlyOpened returns the items opened most often in the last days days
func (s *ItemService) RecentlyOpened(ctx context.Context, days, limit int) ([]domain.OpenCount, error) {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}
	s.logger.Debug("Fetching most opened items (%d days, max %d results)", days, limit)

	since := s.now().AddDate(0, 0, -days)
	return s.opens.GetMostOpened(ctx, since, limit)
}

// Stats summarizes the whole reading list
func (s *ItemService) Stats(ctx context.Context) (domain.ItemStats, error) {
	items, err := s.items.GetAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load items for stats: %v", err)
		return domain.ItemStats{}, err
	}
	return ComputeStats(items, s.now()), nil
}
