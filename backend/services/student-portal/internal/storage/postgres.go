package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// PostgresKV stores profile keys in the client_state table.
type PostgresKV struct {
	db      *sql.DB
	profile string
}

// NewPostgresKV returns a postgres-backed store for one profile.
func NewPostgresKV(db *sql.DB, profile string) *PostgresKV {
	return &PostgresKV{db: db, profile: profile}
}

// EnsureSchema creates the client_state table when missing.
func (s *PostgresKV) EnsureSchema(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS client_state (
			profile    TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (profile, key)
		)
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresKV) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `
		SELECT value
		FROM client_state
		WHERE profile = $1 AND key = $2
	`
	var value string
	err := s.db.QueryRowContext(ctx, query, s.profile, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PostgresKV) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO client_state (profile, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (profile, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query, s.profile, key, value)
	return err
}

func (s *PostgresKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]interface{}, 0, len(keys)+1)
	args = append(args, s.profile)
	placeholders := make([]string, 0, len(keys))
	for i, k := range keys {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, k)
	}
	query := "DELETE FROM client_state WHERE profile = $1 AND key IN (" + strings.Join(placeholders, ", ") + ")"
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}
