package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"readinglist/internal/domain"
	"readinglist/internal/logger"
)

const itemColumns = `id, url, title, description, domain, favicon, priority, status,
	est_minutes, word_count, notes, created_at, updated_at, last_opened_at, metadata_fetched`

// ItemRepository handles database operations for items
type ItemRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *sql.DB, log *logger.Logger) *ItemRepository {
	log.Info("Item repository initialized")
	return &ItemRepository{
		db:     db,
		logger: log,
	}
}

// Create inserts an item and its tag references in one transaction
func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	start := time.Now()
	r.logger.Debug("Creating item: id=%s url='%s'", item.ID, item.URL)

	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			item.ID, item.URL, item.Title, nullString(item.Description), item.Domain,
			nullString(item.Favicon), string(item.Priority), string(item.Status),
			nullInt(item.EstMinutes), nullInt(item.WordCount), nullString(item.Notes),
			item.CreatedAt.UTC(), item.UpdatedAt.UTC(), nullTime(item.LastOpenedAt), item.MetadataFetched,
		)
		if err != nil {
			return err
		}
		return insertItemTags(ctx, tx, item.ID, item.Tags)
	})
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database insert failed: %v (%v)", err, duration)
		return fmt.Errorf("failed to create item: %w", err)
	}

	r.logger.Info("Item created successfully: id=%s (%v)", item.ID, duration)
	return nil
}

// Update overwrites every column of an existing item and replaces its tag
// references
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) error {
	start := time.Now()
	r.logger.Debug("Updating item: id=%s", item.ID)

	query := `
		UPDATE items SET url = ?, title = ?, description = ?, domain = ?, favicon = ?,
			priority = ?, status = ?, est_minutes = ?, word_count = ?, notes = ?,
			updated_at = ?, last_opened_at = ?, metadata_fetched = ?
		WHERE id = ?
	`

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query,
			item.URL, item.Title, nullString(item.Description), item.Domain, nullString(item.Favicon),
			string(item.Priority), string(item.Status), nullInt(item.EstMinutes), nullInt(item.WordCount),
			nullString(item.Notes), item.UpdatedAt.UTC(), nullTime(item.LastOpenedAt), item.MetadataFetched,
			item.ID,
		)
		if err != nil {
			return err
		}
		if err := requireRow(result, "item", item.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM item_tags WHERE item_id = ?`, item.ID); err != nil {
			return err
		}
		return insertItemTags(ctx, tx, item.ID, item.Tags)
	})
	duration := time.Since(start)

	if errors.Is(err, domain.ErrNotFound) {
		r.logger.Debug("No item to update for id '%s' (%v)", item.ID, duration)
		return err
	}
	if err != nil {
		r.logger.Error("Database update failed for item '%s': %v (%v)", item.ID, err, duration)
		return fmt.Errorf("failed to update item: %w", err)
	}

	r.logger.Debug("Item updated successfully: id=%s (%v)", item.ID, duration)
	return nil
}

// Delete removes an item; tag references and open log rows cascade
func (r *ItemRepository) Delete(ctx context.Context, id string) error {
	start := time.Now()
	r.logger.Debug("Deleting item: id=%s", id)

	result, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database delete failed for item '%s': %v (%v)", id, err, duration)
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if err := requireRow(result, "item", id); err != nil {
		r.logger.Debug("No item to delete for id '%s' (%v)", id, duration)
		return err
	}

	r.logger.Info("Item deleted: id=%s (%v)", id, duration)
	return nil
}

// GetByID retrieves an item, or nil if it does not exist
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	return r.getOne(ctx, "id", id)
}

// GetByURL retrieves the most recently updated item with the given URL
func (r *ItemRepository) GetByURL(ctx context.Context, url string) (*domain.Item, error) {
	return r.getOne(ctx, "url", url)
}

func (r *ItemRepository) getOne(ctx context.Context, column, value string) (*domain.Item, error) {
	start := time.Now()
	r.logger.Debug("Getting item by %s: %s", column, value)

	query := `SELECT ` + itemColumns + ` FROM items WHERE ` + column + ` = ? ORDER BY updated_at DESC LIMIT 1`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, value))
	duration := time.Since(start)

	if err == sql.ErrNoRows {
		r.logger.Debug("No item found for %s '%s' (%v)", column, value, duration)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Database query failed for %s '%s': %v (%v)", column, value, err, duration)
		return nil, fmt.Errorf("failed to get item by %s: %w", column, err)
	}

	tags, err := loadItemTags(ctx, r.db, item.ID)
	if err != nil {
		r.logger.Error("Failed to load tags for item '%s': %v", item.ID, err)
		return nil, fmt.Errorf("failed to load item tags: %w", err)
	}
	item.Tags = tags[item.ID]
	if item.Tags == nil {
		item.Tags = []string{}
	}

	r.logger.Debug("Item retrieved: id=%s (%v)", item.ID, time.Since(start))
	return &item, nil
}

// GetAll retrieves every item, most recently updated first
func (r *ItemRepository) GetAll(ctx context.Context) ([]domain.Item, error) {
	return r.Find(ctx, domain.ItemFilter{})
}

// Find retrieves the items matching the structured dimensions of filter,
// most recently updated first. The free-text Query is left to the caller.
func (r *ItemRepository) Find(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	start := time.Now()
	r.logger.Debug("Finding items: %+v", filter)

	where, args := filterClause(filter)
	query := `SELECT ` + itemColumns + ` FROM items` + where + ` ORDER BY updated_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Database query failed: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("failed to find items: %w", err)
	}

	items := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			rows.Close()
			r.logger.Error("Failed to scan item row: %v (%v)", err, time.Since(start))
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		r.logger.Error("Error iterating item rows: %v (%v)", err, time.Since(start))
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	// The pool has a single connection; release it before the tag query
	rows.Close()

	tags, err := loadItemTags(ctx, r.db, "")
	if err != nil {
		r.logger.Error("Failed to load item tags: %v", err)
		return nil, fmt.Errorf("failed to load item tags: %w", err)
	}
	for i := range items {
		items[i].Tags = tags[items[i].ID]
		if items[i].Tags == nil {
			items[i].Tags = []string{}
		}
	}

	r.logger.Debug("Items found: %d items (%v)", len(items), time.Since(start))
	return items, nil
}

// CountByTag returns how many items reference tagID
func (r *ItemRepository) CountByTag(ctx context.Context, tagID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM item_tags WHERE tag_id = ?`, tagID).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to count items for tag '%s': %v", tagID, err)
		return 0, fmt.Errorf("failed to count items by tag: %w", err)
	}
	return n, nil
}

func filterClause(f domain.ItemFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Priority != "" {
		conds = append(conds, "priority = ?")
		args = append(args, string(f.Priority))
	}
	if f.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, f.Domain)
	}
	if len(f.Tags) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Tags)), ", ")
		conds = append(conds, "id IN (SELECT item_id FROM item_tags WHERE tag_id IN ("+placeholders+"))")
		for _, t := range f.Tags {
			args = append(args, t)
		}
	}
	if f.CreatedAfter != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.CreatedAfter.UTC())
	}
	if f.CreatedBefore != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.CreatedBefore.UTC())
	}
	if f.MinEstMinutes != nil {
		conds = append(conds, "est_minutes >= ?")
		args = append(args, *f.MinEstMinutes)
	}
	if f.MaxEstMinutes != nil {
		conds = append(conds, "est_minutes <= ?")
		args = append(args, *f.MaxEstMinutes)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var (
		item         domain.Item
		description  sql.NullString
		favicon      sql.NullString
		notes        sql.NullString
		priority     string
		status       string
		estMinutes   sql.NullInt64
		wordCount    sql.NullInt64
		lastOpenedAt sql.NullTime
	)

	err := row.Scan(
		&item.ID, &item.URL, &item.Title, &description, &item.Domain, &favicon,
		&priority, &status, &estMinutes, &wordCount, &notes,
		&item.CreatedAt, &item.UpdatedAt, &lastOpenedAt, &item.MetadataFetched,
	)
	if err != nil {
		return domain.Item{}, err
	}

	item.Description = stringPtr(description)
	item.Favicon = stringPtr(favicon)
	item.Notes = stringPtr(notes)
	item.Priority = domain.Priority(priority)
	item.Status = domain.Status(status)
	item.EstMinutes = intPtr(estMinutes)
	item.WordCount = intPtr(wordCount)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	item.LastOpenedAt = timePtr(lastOpenedAt)
	return item, nil
}

func insertItemTags(ctx context.Context, q querier, itemID string, tagIDs []string) error {
	for _, tagID := range tagIDs {
		_, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`, itemID, tagID)
		if err != nil {
			return fmt.Errorf("failed to link tag %s: %w", tagID, err)
		}
	}
	return nil
}

// loadItemTags returns tag ids keyed by item id, for one item or all of them
func loadItemTags(ctx context.Context, q querier, itemID string) (map[string][]string, error) {
	query := `SELECT item_id, tag_id FROM item_tags ORDER BY rowid`
	var args []any
	if itemID != "" {
		query = `SELECT item_id, tag_id FROM item_tags WHERE item_id = ? ORDER BY rowid`
		args = append(args, itemID)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var item, tag string
		if err := rows.Scan(&item, &tag); err != nil {
			return nil, err
		}
		out[item] = append(out[item], tag)
	}
	return out, rows.Err()
}

func requireRow(result sql.Result, kind, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
