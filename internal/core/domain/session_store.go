package domain

import (
	"context"
	"errors"
)

// ErrProfileSchema indicates a persisted profile record failed validation.
// Callers treat the session as logged out rather than trusting the blob.
var ErrProfileSchema = errors.New("invalid profile record")

// SessionRecord is what the durable store holds per browser session: the
// bearer token pair plus the serialized profile record. The three pieces are
// written together and read together; last writer wins.
type SessionRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	Profile      []byte `json:"profile"`
}

// SessionStore defines the durable-storage contract for browser sessions,
// keyed by the opaque session id carried in the session cookie.
// Implementations live in internal/core/repository.
type SessionStore interface {
	// Save persists the record under the given session id, replacing any
	// previous record.
	Save(ctx context.Context, sessionID string, rec SessionRecord) error

	// Load returns the record for the given session id.
	// Returns (nil, nil) when no record exists.
	Load(ctx context.Context, sessionID string) (*SessionRecord, error)

	// Delete removes the record for the given session id. Deleting a
	// missing record is not an error.
	Delete(ctx context.Context, sessionID string) error
}
