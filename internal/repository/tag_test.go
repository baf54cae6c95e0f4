package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"readinglist/internal/domain"
)

func TestTagRepository_GetByName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTagRepository(db, testLogger())
	ctx := context.Background()

	createTag(t, repo, "t1", "Golang")

	tests := []struct {
		name   string
		lookup string
		wantID string
	}{
		{"exact", "Golang", "t1"},
		{"lower case", "golang", "t1"},
		{"upper case", "GOLANG", "t1"},
		{"missing", "rust", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByName(ctx, tt.lookup)
			if err != nil {
				t.Fatalf("GetByName() error = %v", err)
			}
			if tt.wantID == "" {
				if got != nil {
					t.Errorf("GetByName() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.ID != tt.wantID {
				t.Errorf("GetByName() = %v, want id %s", got, tt.wantID)
			}
		})
	}
}

func TestTagRepository_GetAllOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTagRepository(db, testLogger())
	ctx := context.Background()

	createTag(t, repo, "t1", "zebra")
	createTag(t, repo, "t2", "Apple")
	createTag(t, repo, "t3", "mango")

	if err := repo.SetUsageCount(ctx, "t1", 5); err != nil {
		t.Fatalf("SetUsageCount() error = %v", err)
	}
	if err := repo.SetUsageCount(ctx, "t3", 2); err != nil {
		t.Fatalf("SetUsageCount() error = %v", err)
	}

	byName, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	assertTagOrder(t, "GetAll", byName, []string{"Apple", "mango", "zebra"})

	byUsage, err := repo.GetByUsage(ctx)
	if err != nil {
		t.Fatalf("GetByUsage() error = %v", err)
	}
	assertTagOrder(t, "GetByUsage", byUsage, []string{"zebra", "mango", "Apple"})
}

func assertTagOrder(t *testing.T, op string, tags []domain.Tag, want []string) {
	t.Helper()
	if len(tags) != len(want) {
		t.Fatalf("%s() returned %d tags, want %d", op, len(tags), len(want))
	}
	for i, name := range want {
		if tags[i].Name != name {
			t.Errorf("%s()[%d] = %s, want %s", op, i, tags[i].Name, name)
		}
	}
}

func TestTagRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTagRepository(db, testLogger())
	ctx := context.Background()

	createTag(t, repo, "parent", "programming")
	createTag(t, repo, "t1", "go")

	parent := "parent"
	tag := &domain.Tag{ID: "t1", Name: "golang", Color: "#ef4444", Parent: &parent}
	if err := repo.Update(ctx, tag); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "t1")
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if got.Name != "golang" || got.Color != "#ef4444" {
		t.Errorf("Update() not persisted: %+v", got)
	}
	if got.Parent == nil || *got.Parent != "parent" {
		t.Errorf("Parent = %v, want parent", got.Parent)
	}

	if err := repo.Update(ctx, &domain.Tag{ID: "nope"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update() missing tag error = %v, want ErrNotFound", err)
	}
	if err := repo.SetUsageCount(ctx, "nope", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("SetUsageCount() missing tag error = %v, want ErrNotFound", err)
	}
}

func TestTagRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	tags := NewTagRepository(db, testLogger())
	items := NewItemRepository(db, testLogger())
	ctx := context.Background()

	createTag(t, tags, "t1", "go")
	createTag(t, tags, "t2", "rust")

	if err := items.Create(ctx, newTestItem("i1", "https://a.com", baseTime, "t1", "t2")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := items.Create(ctx, newTestItem("i2", "https://b.com", baseTime, "t2")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	now := baseTime.Add(5 * time.Hour)
	affected, err := tags.Delete(ctx, "t1", now)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(affected) != 1 || affected[0] != "i1" {
		t.Errorf("Delete() affected = %v, want [i1]", affected)
	}

	i1, err := items.GetByID(ctx, "i1")
	if err != nil || i1 == nil {
		t.Fatalf("GetByID() = %v, %v", i1, err)
	}
	if len(i1.Tags) != 1 || i1.Tags[0] != "t2" {
		t.Errorf("i1.Tags = %v, want [t2]", i1.Tags)
	}
	if !i1.UpdatedAt.Equal(now) {
		t.Errorf("i1.UpdatedAt = %v, want %v", i1.UpdatedAt, now)
	}

	i2, err := items.GetByID(ctx, "i2")
	if err != nil || i2 == nil {
		t.Fatalf("GetByID() = %v, %v", i2, err)
	}
	if !i2.UpdatedAt.Equal(baseTime) {
		t.Errorf("untouched item i2 changed updatedAt to %v", i2.UpdatedAt)
	}

	got, err := tags.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Error("deleted tag still present")
	}

	if _, err := tags.Delete(ctx, "t1", now); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
