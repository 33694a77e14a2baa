package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/paygate-io/subscription-gateway/internal/domain"
)

// SettingsRepository implements ports.SettingsRepository on PostgreSQL.
// Settings are stored as a single JSONB document per gateway id.
type SettingsRepository struct {
	db *DBExecutor
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DBExecutor) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load retrieves the raw settings map for a gateway
func (r *SettingsRepository) Load(ctx context.Context, gatewayID string) (map[string]string, error) {
	var raw []byte
	err := r.db.GetDB().QueryRow(ctx,
		`SELECT settings FROM gateway_settings WHERE gateway_id = $1`,
		gatewayID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	settings := map[string]string{}
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return settings, nil
}

// Save upserts the settings map for a gateway
func (r *SettingsRepository) Save(ctx context.Context, gatewayID string, settings map[string]string) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	_, err = r.db.GetDB().Exec(ctx,
		`INSERT INTO gateway_settings (gateway_id, settings, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (gateway_id)
		 DO UPDATE SET settings = EXCLUDED.settings, updated_at = now()`,
		gatewayID, raw,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}
