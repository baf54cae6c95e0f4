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

// SettingsRepository persists the singleton settings record as a JSON
// document so that fields added later decode as absent rather than zero
type SettingsRepository struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB, log *logger.Logger) *SettingsRepository {
	log.Info("Settings repository initialized")
	return &SettingsRepository{
		db:     db,
		logger: log,
	}
}

// Get returns the stored settings as a patch, or nil if none were saved
func (r *SettingsRepository) Get(ctx context.Context) (*domain.SettingsPatch, error) {
	start := time.Now()

	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = ?`, domain.SettingsID).Scan(&data)
	duration := time.Since(start)

	if err == sql.ErrNoRows {
		r.logger.Debug("No stored settings (%v)", duration)
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Database query failed for settings: %v (%v)", err, duration)
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	var patch domain.SettingsPatch
	if err := json.Unmarshal([]byte(data), &patch); err != nil {
		r.logger.Error("Stored settings are not valid JSON: %v", err)
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	r.logger.Debug("Settings retrieved (%v)", duration)
	return &patch, nil
}

// Save replaces the stored settings document
func (r *SettingsRepository) Save(ctx context.Context, s domain.Settings) error {
	start := time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		domain.SettingsID, string(data))
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("Database upsert failed for settings: %v (%v)", err, duration)
		return fmt.Errorf("failed to save settings: %w", err)
	}

	r.logger.Debug("Settings saved (%v)", duration)
	return nil
}
