package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglist/internal/logger"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := OpenQueue("", logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })
	return q
}

func TestQueue_PutListRemove(t *testing.T) {
	q := newTestQueue(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, q.Put(Job{ID: "b", Kind: "enrich", QueuedAt: base.Add(time.Minute)}))
	require.NoError(t, q.Put(Job{ID: "a", Kind: "enrich", ItemID: "item-1", QueuedAt: base.Add(2 * time.Minute)}))
	require.NoError(t, q.Put(Job{ID: "c", Kind: "enrich", QueuedAt: base}))

	jobs, err := q.List()
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})
	assert.Equal(t, "item-1", jobs[2].ItemID)

	require.NoError(t, q.Put(Job{ID: "a", Kind: "enrich", Attempts: 2, QueuedAt: base.Add(2 * time.Minute)}))
	n, err := q.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n, "put replaces a job with the same id")

	require.NoError(t, q.Remove("b"))
	require.NoError(t, q.Remove("missing"))

	jobs, err = q.List()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, 2, jobs[1].Attempts)
}

func TestQueue_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	q, err := OpenQueue(dir, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, q.Put(Job{ID: "persisted", Kind: "enrich", QueuedAt: time.Now()}))
	require.NoError(t, q.Close())

	q, err = OpenQueue(dir, logger.Discard())
	require.NoError(t, err)
	defer q.Close()

	jobs, err := q.List()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "persisted", jobs[0].ID)
}
