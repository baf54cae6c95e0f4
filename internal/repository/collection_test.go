package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"readinglist/internal/domain"
)

func TestCollectionRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCollectionRepository(db, testLogger())
	ctx := context.Background()

	icon := "star"
	c := &domain.Collection{
		ID:        "c1",
		Name:      "Finished",
		CreatedAt: baseTime,
		Icon:      &icon,
		Rules: []domain.CollectionRule{
			{Field: "status", Operator: domain.OpEquals, Value: "completed"},
			{Field: "estMinutes", Operator: domain.OpLessThan, Value: 10.0, LogicalOperator: "AND"},
		},
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "c1")
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if len(got.Rules) != 2 {
		t.Fatalf("Rules = %v, want 2 rules", got.Rules)
	}
	if got.Rules[0].Value != "completed" || got.Rules[1].Value != 10.0 {
		t.Errorf("rule values not preserved: %+v", got.Rules)
	}
	if got.Icon == nil || *got.Icon != "star" || got.Description != nil {
		t.Errorf("optional fields not preserved: %+v", got)
	}

	byName, err := repo.GetByName(ctx, "Finished")
	if err != nil || byName == nil || byName.ID != "c1" {
		t.Errorf("GetByName() = %v, %v", byName, err)
	}
	none, err := repo.GetByName(ctx, "finished")
	if err != nil || none != nil {
		t.Errorf("GetByName() is exact match, got %v, %v", none, err)
	}
}

func TestCollectionRepository_GetAllNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCollectionRepository(db, testLogger())
	ctx := context.Background()

	for i, id := range []string{"first", "second", "third"} {
		c := &domain.Collection{ID: id, Name: id, CreatedAt: baseTime.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, id := range want {
		if all[i].ID != id {
			t.Errorf("GetAll()[%d] = %s, want %s", i, all[i].ID, id)
		}
		if all[i].Rules == nil {
			t.Errorf("GetAll()[%d].Rules is nil, want empty", i)
		}
	}
}

func TestCollectionRepository_UpdateDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCollectionRepository(db, testLogger())
	ctx := context.Background()

	c := &domain.Collection{ID: "c1", Name: "Old", CreatedAt: baseTime}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	c.Name = "New"
	c.Rules = []domain.CollectionRule{{Field: "tags", Operator: domain.OpContains, Value: "t1"}}
	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, "c1")
	if got == nil || got.Name != "New" || len(got.Rules) != 1 {
		t.Errorf("Update() not persisted: %+v", got)
	}

	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"existing", "c1", nil},
		{"gone", "c1", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := repo.Delete(ctx, tt.id); !errors.Is(err, tt.wantErr) {
				t.Errorf("Delete() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := repo.Update(ctx, c); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Update() after delete error = %v, want ErrNotFound", err)
	}
}
