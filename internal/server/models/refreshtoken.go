package models

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// RefreshToken is the persisted form of a refresh credential. Only the
// fingerprint of the raw secret is ever stored.
type RefreshToken struct {
	Fingerprint tokens.Fingerprint `json:"fingerprint"`
	UserID      string             `json:"user_id"`
	Active      bool               `json:"active"`
	ExpiresAt   time.Time          `json:"expires_at"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Usable reports whether the record may still be exchanged at now: it must
// be active and expire strictly after now.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.Active && t.ExpiresAt.After(now)
}
