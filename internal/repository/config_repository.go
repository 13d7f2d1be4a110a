package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lifetrace/timeline-backend-go/internal/models"
)

// ConfigRepository persists per-user segmentation parameter overrides.
type ConfigRepository struct {
	db *sql.DB
}

func NewConfigRepository(db *sql.DB) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// GetOverride returns the user's stored override, or nil when none exists.
func (r *ConfigRepository) GetOverride(ctx context.Context, userID string) (*models.TimelineConfigOverride, error) {
	var paramsJSON string
	err := r.db.QueryRowContext(ctx, `
		SELECT params_json FROM timeline_config_overrides WHERE user_id = ?
	`, userID).Scan(&paramsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config override: %w", err)
	}

	var override models.TimelineConfigOverride
	if err := json.Unmarshal([]byte(paramsJSON), &override); err != nil {
		return nil, fmt.Errorf("failed to decode config override: %w", err)
	}
	return &override, nil
}

// SaveOverride upserts the user's override.
func (r *ConfigRepository) SaveOverride(ctx context.Context, userID string, override models.TimelineConfigOverride) error {
	paramsJSON, err := json.Marshal(override)
	if err != nil {
		return fmt.Errorf("failed to encode config override: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO timeline_config_overrides (user_id, params_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			params_json = excluded.params_json,
			updated_at = CURRENT_TIMESTAMP
	`, userID, string(paramsJSON))
	if err != nil {
		return fmt.Errorf("failed to save config override: %w", err)
	}
	return nil
}

// DeleteOverride removes the user's override, reverting them to defaults.
func (r *ConfigRepository) DeleteOverride(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM timeline_config_overrides WHERE user_id = ?
	`, userID); err != nil {
		return fmt.Errorf("failed to delete config override: %w", err)
	}
	return nil
}
