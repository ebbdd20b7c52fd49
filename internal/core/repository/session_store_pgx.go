package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onsamiro-welfare-service/onsae-console/internal/core/domain"
)

// PgxSessionStore implements domain.SessionStore using pgxpool.
//
// Expected schema:
//
//	CREATE TABLE console_sessions (
//	    session_id    TEXT PRIMARY KEY,
//	    access_token  TEXT NOT NULL,
//	    refresh_token TEXT NOT NULL,
//	    profile       JSONB NOT NULL,
//	    expires_at    TIMESTAMPTZ NOT NULL
//	);
type PgxSessionStore struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

// NewPgxSessionStore creates a new PgxSessionStore.
func NewPgxSessionStore(pool *pgxpool.Pool, ttl time.Duration) *PgxSessionStore {
	return &PgxSessionStore{pool: pool, ttl: ttl}
}

// Save upserts the record under the given session id.
func (s *PgxSessionStore) Save(ctx context.Context, sessionID string, rec domain.SessionRecord) error {
	query := `
		INSERT INTO console_sessions (session_id, access_token, refresh_token, profile, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    profile = EXCLUDED.profile,
		    expires_at = EXCLUDED.expires_at
	`
	expiresAt := time.Now().Add(s.ttl)
	if _, err := s.pool.Exec(ctx, query, sessionID, rec.AccessToken, rec.RefreshToken, rec.Profile, expiresAt); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// Load returns the record for the given session id.
// Returns (nil, nil) when the session does not exist or has expired.
func (s *PgxSessionStore) Load(ctx context.Context, sessionID string) (*domain.SessionRecord, error) {
	query := `
		SELECT access_token, refresh_token, profile
		FROM console_sessions
		WHERE session_id = $1 AND expires_at > now()
	`

	var rec domain.SessionRecord
	err := s.pool.QueryRow(ctx, query, sessionID).Scan(
		&rec.AccessToken, &rec.RefreshToken, &rec.Profile,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	return &rec, nil
}

// Delete removes the record for the given session id.
func (s *PgxSessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM console_sessions WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
