package domain

import (
	"encoding/json"
	"fmt"
)

// Role is the closed set of user classes known to the console.
type Role string

const (
	RoleUser        Role = "USER"
	RoleAdmin       Role = "ADMIN"
	RoleSystemAdmin Role = "SYSTEM_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSystemAdmin:
		return true
	}
	return false
}

// ProfileSchemaVersion is the current persisted profile record version.
// Records carrying any other version are rejected at the storage boundary.
const ProfileSchemaVersion = 1

// Profile is the authenticated identity of the current actor, as returned by
// the upstream login endpoints and persisted in the durable session store.
type Profile struct {
	Version         int    `json:"version"`
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email,omitempty"`
	Code            string `json:"code,omitempty"`
	Role            Role   `json:"role"`
	InstitutionID   int64  `json:"institutionId,omitempty"`
	InstitutionName string `json:"institutionName,omitempty"`
}

// Validate rejects profile records the console must not trust: missing
// identity, unknown role, or a schema version this build does not understand.
func (p *Profile) Validate() error {
	if p.Version != ProfileSchemaVersion {
		return fmt.Errorf("profile schema version %d: %w", p.Version, ErrProfileSchema)
	}
	if p.ID <= 0 {
		return fmt.Errorf("profile id %d: %w", p.ID, ErrProfileSchema)
	}
	if p.Name == "" {
		return fmt.Errorf("profile name empty: %w", ErrProfileSchema)
	}
	if !p.Role.Valid() {
		return fmt.Errorf("profile role %q: %w", p.Role, ErrProfileSchema)
	}
	return nil
}

// EncodeProfile serializes a profile for durable storage, stamping the
// current schema version.
func EncodeProfile(p Profile) ([]byte, error) {
	p.Version = ProfileSchemaVersion
	return json.Marshal(p)
}

// DecodeProfile parses and validates a persisted profile record.
// Unknown or malformed shapes are rejected rather than trusted.
func DecodeProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
