package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglist/internal/domain"
)

func TestCollectionService_CompletedCollection(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	s.addItem(t, domain.NewItem{URL: "a.com", Status: domain.StatusUnread})
	b := s.addItem(t, domain.NewItem{URL: "b.com", Status: domain.StatusCompleted})
	c := s.addItem(t, domain.NewItem{URL: "c.com", Status: domain.StatusCompleted})

	coll, err := s.collections.Add(ctx, domain.NewCollection{
		Name:  "Done",
		Rules: []domain.CollectionRule{{Field: "status", Operator: domain.OpEquals, Value: "completed"}},
	})
	require.NoError(t, err)

	members, err := s.collections.Items(ctx, coll.ID)
	require.NoError(t, err)

	ids := []string{}
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{b.ID, c.ID}, ids)
}

func TestCollectionService_MembershipFollowsItems(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	tag := s.addTag(t, "go")
	coll, err := s.collections.Add(ctx, domain.NewCollection{
		Name:  "Go",
		Rules: []domain.CollectionRule{{Field: "tags", Operator: domain.OpContains, Value: tag.ID}},
	})
	require.NoError(t, err)

	item := s.addItem(t, domain.NewItem{URL: "go.dev"})
	members, err := s.collections.Items(ctx, coll.ID)
	require.NoError(t, err)
	assert.Empty(t, members)

	_, err = s.items.Update(ctx, item.ID, domain.ItemPatch{Tags: &[]string{tag.ID}})
	require.NoError(t, err)
	members, err = s.collections.Items(ctx, coll.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestCollectionService_AddValidation(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   domain.NewCollection
	}{
		{"missing name", domain.NewCollection{Name: " "}},
		{"unknown field", domain.NewCollection{Name: "x", Rules: []domain.CollectionRule{{Field: "author", Operator: domain.OpEquals}}}},
		{"unknown operator", domain.NewCollection{Name: "x", Rules: []domain.CollectionRule{{Field: "title", Operator: "regex"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.collections.Add(ctx, tt.in)
			assert.True(t, domain.IsValidationError(err), "got %v", err)
		})
	}
}

func TestCollectionService_GetAllNewestFirst(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := s.collections.Add(ctx, domain.NewCollection{Name: name})
		require.NoError(t, err)
		s.clock.Advance(time.Second)
	}

	all, err := s.collections.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Name)
	assert.Equal(t, "one", all[2].Name)
}

func TestCollectionService_SystemCollections(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	require.NoError(t, s.collections.EnsureSystemCollections(ctx))
	require.NoError(t, s.collections.EnsureSystemCollections(ctx))

	all, err := s.collections.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(SystemCollections))

	urgent, err := s.collections.GetByName(ctx, "Urgent")
	require.NoError(t, err)
	assert.True(t, urgent.IsSystem)

	var events counter
	s.collections.Subscribe(events.inc)

	err = s.collections.Delete(ctx, urgent.ID)
	assert.ErrorIs(t, err, domain.ErrSystemCollection)
	assert.Zero(t, events.count())

	s.addItem(t, domain.NewItem{URL: "a.com", Priority: domain.PriorityUrgent})
	s.addItem(t, domain.NewItem{URL: "b.com"})
	members, err := s.collections.Items(ctx, urgent.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)

	everything, err := s.collections.GetByName(ctx, "All Items")
	require.NoError(t, err)
	members, err = s.collections.Items(ctx, everything.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestCollectionService_UpdateDelete(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	coll, err := s.collections.Add(ctx, domain.NewCollection{Name: "Reading", Description: strp("in progress")})
	require.NoError(t, err)

	var events counter
	s.collections.Subscribe(events.inc)

	rules := []domain.CollectionRule{{Field: "status", Operator: domain.OpEquals, Value: "reading"}}
	updated, err := s.collections.Update(ctx, coll.ID, domain.CollectionPatch{Rules: &rules, Icon: strp("book")})
	require.NoError(t, err)
	assert.Len(t, updated.Rules, 1)
	assert.Equal(t, "book", *updated.Icon)

	bad := []domain.CollectionRule{{Field: "nope", Operator: domain.OpEquals}}
	_, err = s.collections.Update(ctx, coll.ID, domain.CollectionPatch{Rules: &bad})
	assert.True(t, domain.IsValidationError(err))

	found, err := s.collections.Search(ctx, "PROGRESS")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	require.NoError(t, s.collections.Delete(ctx, coll.ID))
	assert.ErrorIs(t, s.collections.Delete(ctx, coll.ID), domain.ErrNotFound)
	_, err = s.collections.Items(ctx, coll.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, 2, events.count())
}
