package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

// OpenRepository records every time an item is opened
type OpenRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewOpenRepository creates a new open log repository
func NewOpenRepository(db *sql.DB, log *logger.Logger) *OpenRepository {
	log.Info("Open log repository initialized")
	return &OpenRepository{
		db:     db,
		logger: log,
	}
}

// Create appends an open event for itemID
func (r *OpenRepository) Create(ctx context.Context, itemID string, at time.Time) error {
	start := time.Now()
	r.logger.Debug("Recording open for item ID: %s", itemID)

	_, err := r.db.ExecContext(ctx, `INSERT INTO item_opens (item_id, opened_at) VALUES (?, ?)`, itemID, at.UTC())
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database insert failed: %v (%v)", err, duration)
		return fmt.Errorf("failed to record item open: %w", err)
	}

	r.logger.Debug("Item open recorded successfully (%v)", duration)
	return nil
}

// GetMostOpened returns the items opened most often since the given time
func (r *OpenRepository) GetMostOpened(ctx context.Context, since time.Time, limit int) ([]domain.OpenCount, error) {
	start := time.Now()
	r.logger.Debug("Getting most opened items since %s, max %d results", since.Format(time.RFC3339), limit)

	query := `
		SELECT COUNT(o.item_id) as count, i.id, i.title, i.url
		FROM item_opens o
		JOIN items i ON o.item_id = i.id
		WHERE o.opened_at > ?
		GROUP BY o.item_id
		ORDER BY count DESC, MAX(o.opened_at) DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, since.UTC(), limit)
	if err != nil {
		r.logger.Error("Database query failed: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("failed to get most opened items: %w", err)
	}
	defer rows.Close()

	counts := []domain.OpenCount{}
	for rows.Next() {
		var oc domain.OpenCount
		if err := rows.Scan(&oc.Count, &oc.ItemID, &oc.Title, &oc.URL); err != nil {
			r.logger.Error("Failed to scan open count row: %v (%v)", err, time.Since(start))
			return nil, fmt.Errorf("failed to scan open count: %w", err)
		}
		counts = append(counts, oc)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating open count rows: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("error iterating open counts: %w", err)
	}

	r.logger.Debug("Most opened items retrieved: %d items (%v)", len(counts), time.Since(start))
	return counts, nil
}
