package repository

import (
	"context"
	"testing"

	"readinglist/internal/domain"
)

func TestSettingsRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db, testLogger())
	ctx := context.Background()

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Get() on empty store = %+v, want nil", got)
	}

	s := domain.DefaultSettings()
	s.Theme = domain.ThemeDark
	s.ReadingSpeed = 300
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s.ItemsPerPage = 25
	if err := repo.Save(ctx, s); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err = repo.Get(ctx)
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	merged := got.Apply(domain.DefaultSettings())
	if merged.Theme != domain.ThemeDark || merged.ReadingSpeed != 300 || merged.ItemsPerPage != 25 {
		t.Errorf("stored settings not restored: %+v", merged)
	}
}

func TestSettingsRepository_LegacyDocument(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepository(db, testLogger())
	ctx := context.Background()

	// written by an older release that only knew autoFetch
	_, err := db.Exec(`INSERT INTO settings (id, data) VALUES (?, ?)`, domain.SettingsID, `{"theme":"light","autoFetch":false}`)
	if err != nil {
		t.Fatalf("Failed to seed settings: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v", got, err)
	}
	merged := got.Apply(domain.DefaultSettings())
	if merged.AutoFetchMetadata {
		t.Error("legacy autoFetch=false should map onto autoFetchMetadata")
	}
	if merged.ViewMode != domain.ViewList {
		t.Errorf("absent field should keep default, got %s", merged.ViewMode)
	}
}
