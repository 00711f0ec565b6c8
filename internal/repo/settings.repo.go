package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// SettingsRepo reads the JSON-valued key/value settings table maintained by the admin panel.
type SettingsRepo interface {
	GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
	Upsert(ctx context.Context, key string, value any) error
}

type settingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) SettingsRepo {
	return &settingsRepo{db: db}
}

// GetMany fetches every requested key in a single query. Absent keys are simply
// missing from the result.
func (r *settingsRepo) GetMany(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return values, nil
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = k
	}
	query := "SELECT key, value FROM settings WHERE key IN (" + strings.Join(placeholders, ", ") + ")"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		values[key] = json.RawMessage(append([]byte(nil), raw...))
	}
	return values, rows.Err()
}

func (r *settingsRepo) Upsert(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, string(raw))
	return err
}
