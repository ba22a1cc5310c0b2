package refreshtoken

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rosterd/internal/auth/models"
	"rosterd/pkg/platform/sentinel"
)

// PostgresStore persists refresh token records in PostgreSQL for deployments
// that cannot accept credential loss on restart.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed refresh token store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Bootstrap creates the backing table if it does not exist.
func (s *PostgresStore) Bootstrap(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS refresh_tokens (
		token      TEXT PRIMARY KEY,
		subject    TEXT NOT NULL,
		device     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("bootstrap refresh_tokens table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, record *models.RefreshTokenRecord) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO refresh_tokens (token, subject, device, created_at, expires_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (token) DO UPDATE
	SET subject = EXCLUDED.subject,
	    device = EXCLUDED.device,
	    created_at = EXCLUDED.created_at,
	    expires_at = EXCLUDED.expires_at;`,
		record.Token, record.Subject, record.Device, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, token string) (*models.RefreshTokenRecord, error) {
	var record models.RefreshTokenRecord
	err := s.db.QueryRowContext(ctx, `
	SELECT token, subject, device, created_at, expires_at
	FROM refresh_tokens
	WHERE token = $1;`, token).Scan(
		&record.Token,
		&record.Subject,
		&record.Device,
		&record.CreatedAt,
		&record.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refresh token not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1;`, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpiredAt removes all records expired as of the given time.
func (s *PostgresStore) DeleteExpiredAt(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1;`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}
