package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

const tagColumns = `id, name, color, created_at, usage_count, parent`

// TagRepository handles database operations for tags
type TagRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *sql.DB, log *logger.Logger) *TagRepository {
	log.Info("Tag repository initialized")
	return &TagRepository{
		db:     db,
		logger: log,
	}
}

// Create inserts a tag
func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	start := time.Now()
	r.logger.Debug("Creating tag: name='%s' color='%s'", tag.Name, tag.Color)

	query := `INSERT INTO tags (` + tagColumns + `) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		tag.ID, tag.Name, tag.Color, tag.CreatedAt.UTC(), tag.UsageCount, nullString(tag.Parent))
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database insert failed: %v (%v)", err, duration)
		return fmt.Errorf("failed to create tag: %w", err)
	}

	r.logger.Info("Tag created successfully: id=%s name='%s' (%v)", tag.ID, tag.Name, duration)
	return nil
}

// Update overwrites name, color and parent of an existing tag
func (r *TagRepository) Update(ctx context.Context, tag *domain.Tag) error {
	start := time.Now()
	r.logger.Debug("Updating tag: id=%s", tag.ID)

	result, err := r.db.ExecContext(ctx,
		`UPDATE tags SET name = ?, color = ?, parent = ? WHERE id = ?`,
		tag.Name, tag.Color, nullString(tag.Parent), tag.ID)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database update failed for tag '%s': %v (%v)", tag.ID, err, duration)
		return fmt.Errorf("failed to update tag: %w", err)
	}
	if err := requireRow(result, "tag", tag.ID); err != nil {
		return err
	}

	r.logger.Debug("Tag updated successfully: id=%s (%v)", tag.ID, duration)
	return nil
}

// SetUsageCount stores a recomputed usage count
func (r *TagRepository) SetUsageCount(ctx context.Context, id string, count int) error {
	start := time.Now()

	result, err := r.db.ExecContext(ctx, `UPDATE tags SET usage_count = ? WHERE id = ?`, count, id)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Failed to store usage count for tag '%s': %v (%v)", id, err, duration)
		return fmt.Errorf("failed to set usage count: %w", err)
	}
	if err := requireRow(result, "tag", id); err != nil {
		return err
	}

	r.logger.Debug("Usage count for tag %s set to %d (%v)", id, count, duration)
	return nil
}

// Delete strips the tag from every item, touching their updated_at, and
// removes the tag record, all in one transaction. It returns the ids of the
// items that lost the reference.
func (r *TagRepository) Delete(ctx context.Context, id string, now time.Time) ([]string, error) {
	start := time.Now()
	r.logger.Debug("Deleting tag: id=%s", id)

	var affected []string
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT item_id FROM item_tags WHERE tag_id = ? ORDER BY item_id`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var itemID string
			if err := rows.Scan(&itemID); err != nil {
				rows.Close()
				return err
			}
			affected = append(affected, itemID)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(affected) > 0 {
			_, err = tx.ExecContext(ctx,
				`UPDATE items SET updated_at = ? WHERE id IN (SELECT item_id FROM item_tags WHERE tag_id = ?)`,
				now.UTC(), id)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE tag_id = ?`, id); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return err
		}
		return requireRow(result, "tag", id)
	})
	duration := time.Since(start)

	if errors.Is(err, domain.ErrNotFound) {
		r.logger.Debug("No tag to delete for id '%s' (%v)", id, duration)
		return nil, err
	}
	if err != nil {
		r.logger.Error("Database delete failed for tag '%s': %v (%v)", id, err, duration)
		return nil, fmt.Errorf("failed to delete tag: %w", err)
	}

	r.logger.Info("Tag deleted: id=%s, stripped from %d items (%v)", id, len(affected), duration)
	return affected, nil
}

// GetByID retrieves a tag, or nil if it does not exist
func (r *TagRepository) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	return r.getOne(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = ?`, id)
}

// GetByName retrieves a tag by case-insensitive name, or nil
func (r *TagRepository) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	return r.getOne(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE name = ? COLLATE NOCASE ORDER BY created_at LIMIT 1`, name)
}

func (r *TagRepository) getOne(ctx context.Context, query, arg string) (*domain.Tag, error) {
	start := time.Now()

	tag, err := scanTag(r.db.QueryRowContext(ctx, query, arg))
	duration := time.Since(start)

	if err == sql.ErrNoRows {
		r.logger.Debug("No tag found for '%s' (%v)", arg, duration)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Database query failed for tag '%s': %v (%v)", arg, err, duration)
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	r.logger.Debug("Tag retrieved: id=%s name='%s' (%v)", tag.ID, tag.Name, duration)
	return &tag, nil
}

// GetAll retrieves every tag ordered by name, ignoring case
func (r *TagRepository) GetAll(ctx context.Context) ([]domain.Tag, error) {
	return r.list(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY name COLLATE NOCASE, id`)
}

// GetByUsage retrieves every tag, most used first
func (r *TagRepository) GetByUsage(ctx context.Context) ([]domain.Tag, error) {
	return r.list(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY usage_count DESC, name COLLATE NOCASE, id`)
}

func (r *TagRepository) list(ctx context.Context, query string) ([]domain.Tag, error) {
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Database query failed: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			r.logger.Error("Failed to scan tag row: %v (%v)", err, time.Since(start))
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating tag rows: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}

	r.logger.Debug("Tags retrieved: %d tags (%v)", len(tags), time.Since(start))
	return tags, nil
}

func scanTag(row rowScanner) (domain.Tag, error) {
	var tag domain.Tag
	var parent sql.NullString
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt, &tag.UsageCount, &parent); err != nil {
		return domain.Tag{}, err
	}
	tag.CreatedAt = tag.CreatedAt.UTC()
	tag.Parent = stringPtr(parent)
	return tag, nil
}
