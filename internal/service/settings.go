package service

import (
	"context"
	"sync"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
	"readinglist/internal/notify"
)

// SettingsService is the settings store. The merged record is cached after
// the first read; every write goes through Update so the cache stays valid.
type SettingsService struct {
	repo   SettingsRepository
	bus    *notify.Bus
	logger *logger.Logger

	mu     sync.Mutex
	cached *domain.Settings
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo SettingsRepository, bus *notify.Bus, log *logger.Logger) *SettingsService {
	log.Info("Settings service initialized")
	return &SettingsService{
		repo:   repo,
		bus:    bus,
		logger: log,
	}
}

// Subscribe registers fn to run after every successful settings change
func (s *SettingsService) Subscribe(fn func()) func() {
	return s.bus.Subscribe(fn)
}

// Get returns the stored settings merged over the defaults
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *SettingsService) load(ctx context.Context) (domain.Settings, error) {
	if s.cached != nil {
		return *s.cached, nil
	}

	stored, err := s.repo.Get(ctx)
	if err != nil {
		s.logger.Error("Failed to load settings: %v", err)
		return domain.Settings{}, err
	}

	settings := domain.DefaultSettings()
	if stored != nil {
		settings = stored.Apply(settings)
	}
	s.cached = &settings
	return settings, nil
}

// Update merges patch into the current settings field by field
func (s *SettingsService) Update(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if err := patch.Validate(); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	current, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		return domain.Settings{}, err
	}

	next := patch.Apply(current)
	if err := s.repo.Save(ctx, next); err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to save settings: %v", err)
		return domain.Settings{}, persistErr("failed to save settings", err)
	}
	s.cached = &next
	s.mu.Unlock()

	s.bus.Publish()
	s.logger.Debug("Settings updated")
	return next, nil
}
