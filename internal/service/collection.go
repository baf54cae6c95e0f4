package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/notify"
	"readinglist/internal/rules"
)

// ItemSource lists the items a collection is evaluated against
type ItemSource interface {
	GetAll(ctx context.Context) ([]domain.Item, error)
}

// SystemCollections are seeded on startup and cannot be deleted
var SystemCollections = []domain.NewCollection{
	{
		Name:     "All Items",
		Rules:    []domain.CollectionRule{},
		IsSystem: true,
		Icon:     strPtr("inbox"),
	},
	{
		Name:     "Unread",
		Rules:    []domain.CollectionRule{{Field: "status", Operator: domain.OpEquals, Value: string(domain.StatusUnread)}},
		IsSystem: true,
		Icon:     strPtr("book"),
	},
	{
		Name:     "Urgent",
		Rules:    []domain.CollectionRule{{Field: "priority", Operator: domain.OpEquals, Value: string(domain.PriorityUrgent)}},
		IsSystem: true,
		Icon:     strPtr("alert"),
	},
}

func strPtr(s string) *string { return &s }

// CollectionService is the collection store. Membership is never stored;
// Items evaluates the rules against the current item list.
type CollectionService struct {
	collections CollectionRepository
	items       ItemSource
	bus         *notify.Bus
	logger      *logger.Logger
	now         clock
}

// NewCollectionService creates a new collection service
func NewCollectionService(collections CollectionRepository, items ItemSource, bus *notify.Bus, log *logger.Logger) *CollectionService {
	log.Info("Collection service initialized")
	return &CollectionService{
		collections: collections,
		items:       items,
		bus:         bus,
		logger:      log,
		now:         systemClock,
	}
}

// Subscribe registers fn to run after every successful collection mutation
func (s *CollectionService) Subscribe(fn func()) func() {
	return s.bus.Subscribe(fn)
}

// Add validates and stores a new collection
func (s *CollectionService) Add(ctx context.Context, n domain.NewCollection) (*domain.Collection, error) {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		return nil, domain.ValidationError{Field: "name", Message: "collection name is required"}
	}
	if err := rules.Validate(n.Rules); err != nil {
		return nil, err
	}

	c := &domain.Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: n.Description,
		Rules:       n.Rules,
		CreatedAt:   s.now(),
		IsSystem:    n.IsSystem,
		Icon:        n.Icon,
	}
	if c.Rules == nil {
		c.Rules = []domain.CollectionRule{}
	}

	if err := s.collections.Create(ctx, c); err != nil {
		s.logger.Error("Failed to create collection in repository: %v", err)
		return nil, persistErr("failed to add collection", err)
	}
	s.bus.Publish()

	s.logger.Info("Collection added: id=%s name='%s' rules=%d", c.ID, c.Name, len(c.Rules))
	return c, nil
}

// Update applies patch to a collection
func (s *CollectionService) Update(ctx context.Context, id string, patch domain.CollectionPatch) (*domain.Collection, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, domain.ValidationError{Field: "name", Message: "collection name is required"}
		}
		c.Name = name
	}
	if patch.Description != nil {
		c.Description = patch.Description
	}
	if patch.Rules != nil {
		if err := rules.Validate(*patch.Rules); err != nil {
			return nil, err
		}
		c.Rules = *patch.Rules
	}
	if patch.Icon != nil {
		c.Icon = patch.Icon
	}

	if err := s.collections.Update(ctx, c); err != nil {
		s.logger.Error("Failed to update collection %s: %v", id, err)
		return nil, persistErr("failed to update collection", err)
	}
	s.bus.Publish()
	return c, nil
}

// Delete removes a user collection; system collections are refused
func (s *CollectionService) Delete(ctx context.Context, id string) error {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.IsSystem {
		s.logger.Warn("Refusing to delete system collection %s", id)
		return fmt.Errorf("collection %s: %w", c.Name, domain.ErrSystemCollection)
	}

	if err := s.collections.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete collection %s: %v", id, err)
		return persistErr("failed to delete collection", err)
	}
	s.bus.Publish()

	s.logger.Info("Collection deleted: id=%s", id)
	return nil
}

// GetByID returns the collection or ErrNotFound
func (s *CollectionService) GetByID(ctx context.Context, id string) (*domain.Collection, error) {
	c, err := s.collections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("collection", id)
	}
	return c, nil
}

// GetByName returns the collection with exactly this name or ErrNotFound
func (s *CollectionService) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	c, err := s.collections.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("collection named", name)
	}
	return c, nil
}

// GetAll returns every collection, newest first
func (s *CollectionService) GetAll(ctx context.Context) ([]domain.Collection, error) {
	return s.collections.GetAll(ctx)
}

// Search returns collections whose name or description contains query,
// ignoring case
func (s *CollectionService) Search(ctx context.Context, query string) ([]domain.Collection, error) {
	all, err := s.collections.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	out := []domain.Collection{}
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			(c.Description != nil && strings.Contains(strings.ToLower(*c.Description), q)) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Items evaluates the collection's rules against every item
func (s *CollectionService) Items(ctx context.Context, id string) ([]domain.Item, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := s.items.GetAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load items for collection %s: %v", id, err)
		return nil, err
	}

	members := rules.Filter(items, c.Rules)
	s.logger.Debug("Collection %s matched %d of %d items", id, len(members), len(items))
	return members, nil
}

// EnsureSystemCollections creates any built-in collection that is missing
func (s *CollectionService) EnsureSystemCollections(ctx context.Context) error {
	for _, sc := range SystemCollections {
		_, err := s.GetByName(ctx, sc.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("failed to look up system collection %q: %w", sc.Name, err)
		}
		if _, err := s.Add(ctx, sc); err != nil {
			return fmt.Errorf("failed to seed system collection %q: %w", sc.Name, err)
		}
	}
	return nil
}
