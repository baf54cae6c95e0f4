package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

const collectionColumns = `id, name, description, rules, created_at, is_system, icon`

// CollectionRepository handles database operations for collections. Rules
// are stored as a JSON array.
type CollectionRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(db *sql.DB, log *logger.Logger) *CollectionRepository {
	log.Info("Collection repository initialized")
	return &CollectionRepository{
		db:     db,
		logger: log,
	}
}

// Create inserts a collection
func (r *CollectionRepository) Create(ctx context.Context, c *domain.Collection) error {
	start := time.Now()
	r.logger.Debug("Creating collection: name='%s' rules=%d", c.Name, len(c.Rules))

	rules, err := encodeRules(c.Rules)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO collections (`+collectionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, nullString(c.Description), rules, c.CreatedAt.UTC(), c.IsSystem, nullString(c.Icon))
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database insert failed: %v (%v)", err, duration)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	r.logger.Info("Collection created successfully: id=%s name='%s' (%v)", c.ID, c.Name, duration)
	return nil
}

// Update overwrites the mutable fields of an existing collection
func (r *CollectionRepository) Update(ctx context.Context, c *domain.Collection) error {
	start := time.Now()
	r.logger.Debug("Updating collection: id=%s", c.ID)

	rules, err := encodeRules(c.Rules)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE collections SET name = ?, description = ?, rules = ?, icon = ? WHERE id = ?`,
		c.Name, nullString(c.Description), rules, nullString(c.Icon), c.ID)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database update failed for collection '%s': %v (%v)", c.ID, err, duration)
		return fmt.Errorf("failed to update collection: %w", err)
	}
	if err := requireRow(result, "collection", c.ID); err != nil {
		return err
	}

	r.logger.Debug("Collection updated successfully: id=%s (%v)", c.ID, duration)
	return nil
}

// Delete removes a collection
func (r *CollectionRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()

	result, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database delete failed for collection '%s': %v (%v)", id, err, duration)
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	if err := requireRow(result, "collection", id); err != nil {
		return err
	}

	r.logger.Info("Collection deleted: id=%s (%v)", id, duration)
	return nil
}

// GetByID retrieves a collection, or nil if it does not exist
func (r *CollectionRepository) GetByID(ctx context.Context, id string) (*domain.Collection, error) {
	return r.getOne(ctx, `SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
}

// GetByName retrieves the oldest collection with exactly this name, or nil
func (r *CollectionRepository) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	return r.getOne(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE name = ? ORDER BY created_at LIMIT 1`, name)
}

func (r *CollectionRepository) getOne(ctx context.Context, query, arg string) (*domain.Collection, error) {
	start := time.Now()

	c, err := scanCollection(r.db.QueryRowContext(ctx, query, arg))
	duration := time.Since(start)

	if err == sql.ErrNoRows {
		r.logger.Debug("No collection found for '%s' (%v)", arg, duration)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Database query failed for collection '%s': %v (%v)", arg, err, duration)
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}

	return &c, nil
}

// GetAll retrieves every collection, newest first
func (r *CollectionRepository) GetAll(ctx context.Context) ([]domain.Collection, error) {
	start := time.Now()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections ORDER BY created_at DESC, id`)
	if err != nil {
		r.logger.Error("Database query failed: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("failed to get collections: %w", err)
	}
	defer rows.Close()

	collections := []domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			r.logger.Error("Failed to scan collection row: %v (%v)", err, time.Since(start))
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating collection rows: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	r.logger.Debug("Collections retrieved: %d collections (%v)", len(collections), time.Since(start))
	return collections, nil
}

func encodeRules(rules []domain.CollectionRule) (string, error) {
	if rules == nil {
		rules = []domain.CollectionRule{}
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return "", fmt.Errorf("failed to encode collection rules: %w", err)
	}
	return string(data), nil
}

func scanCollection(row rowScanner) (domain.Collection, error) {
	var (
		c           domain.Collection
		description sql.NullString
		icon        sql.NullString
		rules       string
	)
	err := row.Scan(&c.ID, &c.Name, &description, &rules, &c.CreatedAt, &c.IsSystem, &icon)
	if err != nil {
		return domain.Collection{}, err
	}

	if err := json.Unmarshal([]byte(rules), &c.Rules); err != nil {
		return domain.Collection{}, fmt.Errorf("failed to decode rules of collection %s: %w", c.ID, err)
	}
	if c.Rules == nil {
		c.Rules = []domain.CollectionRule{}
	}
	c.Description = stringPtr(description)
	c.Icon = stringPtr(icon)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
