package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"readinglist/internal/database"
	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/notify"
	"readinglist/internal/repository"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testStack struct {
	clock *fakeClock

	itemRepo *repository.ItemRepository
	tagRepo  *repository.TagRepository

	items       *ItemService
	tags        *TagService
	collections *CollectionService
	settings    *SettingsService
	backup      *BackupService
	usage       *UsageCounter
}

// newTestStack wires every store over a fresh in-memory database
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logger.Discard()
	clock := newFakeClock()

	itemRepo := repository.NewItemRepository(db, log)
	tagRepo := repository.NewTagRepository(db, log)
	collectionRepo := repository.NewCollectionRepository(db, log)
	settingsRepo := repository.NewSettingsRepository(db, log)
	openRepo := repository.NewOpenRepository(db, log)

	itemBus, tagBus := &notify.Bus{}, &notify.Bus{}
	usage := NewUsageCounter(itemRepo, tagRepo, tagBus, log)
	items := NewItemService(itemRepo, tagRepo, openRepo, usage, itemBus, log)
	tags := NewTagService(tagRepo, usage, tagBus, itemBus, log)
	collections := NewCollectionService(collectionRepo, items, &notify.Bus{}, log)
	settings := NewSettingsService(settingsRepo, &notify.Bus{}, log)
	backup := NewBackupService(items, tags, collections, settings, log)

	items.now = clock.Now
	tags.now = clock.Now
	collections.now = clock.Now
	backup.now = clock.Now

	return &testStack{
		clock:       clock,
		itemRepo:    itemRepo,
		tagRepo:     tagRepo,
		items:       items,
		tags:        tags,
		collections: collections,
		settings:    settings,
		backup:      backup,
		usage:       usage,
	}
}

func (s *testStack) addTag(t *testing.T, name string) *domain.Tag {
	t.Helper()
	tag, err := s.tags.Add(context.Background(), domain.NewTag{Name: name})
	if err != nil {
		t.Fatalf("Failed to add tag %s: %v", name, err)
	}
	return tag
}

func (s *testStack) addItem(t *testing.T, n domain.NewItem) *domain.Item {
	t.Helper()
	item, err := s.items.Add(context.Background(), n)
	if err != nil {
		t.Fatalf("Failed to add item %s: %v", n.URL, err)
	}
	return item
}

// assertUsageCounts checks every tag's stored count against the items
func (s *testStack) assertUsageCounts(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	items, err := s.items.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	tags, err := s.tags.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}

	for _, tag := range tags {
		want := 0
		for _, item := range items {
			if item.HasTag(tag.ID) {
				want++
			}
		}
		if tag.UsageCount != want {
			t.Errorf("tag %s usageCount = %d, want %d", tag.Name, tag.UsageCount, want)
		}
	}
}

// counter subscribes to a store and counts notifications
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
