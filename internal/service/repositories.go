package service

import (
	"context"
	"time"

	"readinglist/internal/domain"
)

// ItemRepository interface for item persistence
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetByURL(ctx context.Context, url string) (*domain.Item, error)
	GetAll(ctx context.Context) ([]domain.Item, error)
	Find(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	CountByTag(ctx context.Context, tagID string) (int, error)
}

// TagRepository interface for tag persistence
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	Update(ctx context.Context, tag *domain.Tag) error
	SetUsageCount(ctx context.Context, id string, count int) error
	Delete(ctx context.Context, id string, now time.Time) ([]string, error)
	GetByID(ctx context.Context, id string) (*domain.Tag, error)
	GetByName(ctx context.Context, name string) (*domain.Tag, error)
	GetAll(ctx context.Context) ([]domain.Tag, error)
	GetByUsage(ctx context.Context) ([]domain.Tag, error)
}

// CollectionRepository interface for collection persistence
type CollectionRepository interface {
	Create(ctx context.Context, c *domain.Collection) error
	Update(ctx context.Context, c *domain.Collection) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Collection, error)
	GetByName(ctx context.Context, name string) (*domain.Collection, error)
	GetAll(ctx context.Context) ([]domain.Collection, error)
}

// SettingsRepository interface for the settings record
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SettingsPatch, error)
	Save(ctx context.Context, s domain.Settings) error
}

// OpenRepository interface for the item open log
type OpenRepository interface {
	Create(ctx context.Context, itemID string, at time.Time) error
	GetMostOpened(ctx context.Context, since time.Time, limit int) ([]domain.OpenCount, error)
}

// clock returns the current time in UTC; services hold one so tests can
// pin it
type clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
