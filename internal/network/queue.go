package network

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"

	"readinglist/internal/logger"
)

var jobPrefix = []byte("job/")

// Job is a deferred operation waiting for connectivity
type Job struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	ItemID   string    `json:"itemId,omitempty"`
	URL      string    `json:"url,omitempty"`
	Attempts int       `json:"attempts"`
	QueuedAt time.Time `json:"queuedAt"`
}

// Queue persists pending jobs in badger so they survive restarts
type Queue struct {
	db     *badger.DB
	logger *logger.Logger
}

// OpenQueue opens the queue stored in dir. An empty dir keeps the queue in
// memory.
func OpenQueue(dir string, log *logger.Logger) (*Queue, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open job queue: %w", err)
	}
	log.Debug("Job queue opened (dir=%q)", dir)
	return &Queue{db: db, logger: log}, nil
}

func jobKey(id string) []byte {
	return append(slices.Clone(jobPrefix), id...)
}

// Put stores job, replacing any job with the same id
func (q *Queue) Put(job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}

	err = q.db.Update(func(txn *badger.Txn) error {
		return txn.Set(jobKey(job.ID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to queue job %s: %w", job.ID, err)
	}
	return nil
}

// Remove deletes a job; removing an absent job is not an error
func (q *Queue) Remove(id string) error {
	err := q.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(jobKey(id))
	})
	if err != nil {
		return fmt.Errorf("failed to remove job %s: %w", id, err)
	}
	return nil
}

// List returns every pending job, oldest first
func (q *Queue) List() ([]Job, error) {
	jobs := []Job{}

	err := q.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(jobPrefix); it.ValidForPrefix(jobPrefix); it.Next() {
			var job Job
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			})
			if err != nil {
				q.logger.Warn("Skipping unreadable job %s: %v", it.Item().Key(), err)
				continue
			}
			jobs = append(jobs, job)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	slices.SortStableFunc(jobs, func(a, b Job) int {
		return a.QueuedAt.Compare(b.QueuedAt)
	})
	return jobs, nil
}

// Len counts pending jobs
func (q *Queue) Len() (int, error) {
	n := 0
	err := q.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(jobPrefix); it.ValidForPrefix(jobPrefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return n, nil
}

// Close releases the underlying store
func (q *Queue) Close() error {
	return q.db.Close()
}
