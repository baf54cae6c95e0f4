package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/notify"
)

// TagPalette holds the colors assigned to tags created without one
var TagPalette = []string{
	"#3b82f6", "#10b981", "#f59e0b", "#8b5cf6", "#ef4444", "#06b6d4",
	"#84cc16", "#f97316", "#ec4899", "#6366f1", "#14b8a6", "#eab308",
}

// TagService is the tag store
type TagService struct {
	tags    TagRepository
	usage   *UsageCounter
	bus     *notify.Bus
	itemBus *notify.Bus
	logger  *logger.Logger
	now     clock
	pick    func(n int) int
}

// NewTagService creates a new tag service. Deleting a tag also publishes on
// itemBus because the affected items change.
func NewTagService(tags TagRepository, usage *UsageCounter, bus, itemBus *notify.Bus, log *logger.Logger) *TagService {
	log.Info("Tag service initialized")
	return &TagService{
		tags:    tags,
		usage:   usage,
		bus:     bus,
		itemBus: itemBus,
		logger:  log,
		now:     systemClock,
		pick:    rand.Intn,
	}
}

// Subscribe registers fn to run after every successful tag mutation,
// including usage count refreshes
func (s *TagService) Subscribe(fn func()) func() {
	return s.bus.Subscribe(fn)
}

// Add stores a new tag. Names are not forced unique here; GetOrCreate is
// the deduplicating entry point.
func (s *TagService) Add(ctx context.Context, n domain.NewTag) (*domain.Tag, error) {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return nil, domain.ValidationError{Field: "name", Message: "tag name is required"}
	}
	if err := s.checkParent(ctx, "", n.Parent); err != nil {
		return nil, err
	}

	tag := &domain.Tag{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     n.Color,
		CreatedAt: s.now(),
		Parent:    n.Parent,
	}
	if tag.Color == "" {
		tag.Color = s.randomColor()
	}

	if err := s.tags.Create(ctx, tag); err != nil {
		s.logger.Error("Failed to create tag in repository: %v", err)
		return nil, persistErr("failed to add tag", err)
	}
	s.bus.Publish()

	s.logger.Info("Tag added: id=%s name='%s'", tag.ID, tag.Name)
	return tag, nil
}

func (s *TagService) randomColor() string {
	return TagPalette[s.pick(len(TagPalette))]
}

func (s *TagService) checkParent(ctx context.Context, id string, parent *string) error {
	if parent == nil {
		return nil
	}
	if *parent == id {
		return domain.ValidationError{Field: "parent", Message: "a tag cannot be its own parent"}
	}
	p, err := s.tags.GetByID(ctx, *parent)
	if err != nil {
		return fmt.Errorf("failed to look up parent tag: %w", err)
	}
	if p == nil {
		return domain.ValidationError{Field: "parent", Message: fmt.Sprintf("unknown tag %q", *parent)}
	}
	return nil
}

// GetOrCreate returns the tag named name, ignoring case, creating it with
// color (or a palette color) when absent
func (s *TagService) GetOrCreate(ctx context.Context, name, color string) (*domain.Tag, error) {
	existing, err := s.tags.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		s.logger.Error("Failed to look up tag '%s': %v", name, err)
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.Add(ctx, domain.NewTag{Name: name, Color: color})
}

// Update applies patch to a tag
func (s *TagService) Update(ctx context.Context, id string, patch domain.TagPatch) (*domain.Tag, error) {
	tag, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.ValidationError{Field: "name", Message: "tag name is required"}
		}
		tag.Name = name
	}
	if patch.Color != nil {
		tag.Color = *patch.Color
	}
	if patch.Parent != nil {
		if *patch.Parent == "" {
			tag.Parent = nil
		} else {
			if err := s.checkParent(ctx, id, patch.Parent); err != nil {
				return nil, err
			}
			parent := *patch.Parent
			tag.Parent = &parent
		}
	}

	if err := s.tags.Update(ctx, tag); err != nil {
		s.logger.Error("Failed to update tag %s: %v", id, err)
		return nil, persistErr("failed to update tag", err)
	}
	s.bus.Publish()
	return tag, nil
}

// Delete strips the tag from every item and removes it
func (s *TagService) Delete(ctx context.Context, id string) error {
	affected, err := s.tags.Delete(ctx, id, s.now())
	if err != nil {
		s.logger.Error("Failed to delete tag %s: %v", id, err)
		return persistErr("failed to delete tag", err)
	}

	s.bus.Publish()
	if len(affected) > 0 {
		s.itemBus.Publish()
	}

	s.logger.Info("Tag deleted: id=%s, removed from %d items", id, len(affected))
	return nil
}

// GetByID returns the tag or ErrNotFound
func (s *TagService) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	tag, err := s.tags.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, notFound("tag", id)
	}
	return tag, nil
}

// GetByName returns the tag with this name, ignoring case, or ErrNotFound
func (s *TagService) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	tag, err := s.tags.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, notFound("tag named", name)
	}
	return tag, nil
}

// GetAll returns every tag ordered by name
func (s *TagService) GetAll(ctx context.Context) ([]domain.Tag, error) {
	return s.tags.GetAll(ctx)
}

// ByUsage returns every tag, most used first
func (s *TagService) ByUsage(ctx context.Context) ([]domain.Tag, error) {
	return s.tags.GetByUsage(ctx)
}

// Search returns the tags whose name contains query, ignoring case
func (s *TagService) Search(ctx context.Context, query string) ([]domain.Tag, error) {
	tags, err := s.tags.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return tags, nil
	}

	out := []domain.Tag{}
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

// tagNames adapts a tag slice to fuzzy.Source
type tagNames []domain.Tag

func (t tagNames) String(i int) string { return t[i].Name }
func (t tagNames) Len() int            { return len(t) }

// Suggest ranks tags against a partially typed name for autocomplete. An
// empty query returns the most used tags.
func (s *TagService) Suggest(ctx context.Context, query string, limit int) ([]domain.Tag, error) {
	if limit <= 0 {
		limit = 10
	}

	tags, err := s.tags.GetByUsage(ctx)
	if err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		if len(tags) > limit {
			tags = tags[:limit]
		}
		return tags, nil
	}

	matches := fuzzy.FindFrom(query, tagNames(tags))
	out := make([]domain.Tag, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, tags[m.Index])
	}
	return out, nil
}

// RecountAll repairs every tag's usage count
func (s *TagService) RecountAll(ctx context.Context) error {
	return s.usage.RecountAll(ctx)
}
