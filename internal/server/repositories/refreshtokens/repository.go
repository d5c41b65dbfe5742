// Package refreshtokens declares the storage contract for refresh token
// records and provides PostgreSQL and Redis implementations of it.
//
// Records are keyed by tokens.Fingerprint; the raw secret never reaches
// this package.
package refreshtokens

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// ErrConflict is returned by Store.WithinTx when a concurrent writer
// changed a record the unit of work depended on, and the work was discarded.
var ErrConflict = errors.New("refresh token changed concurrently")

// Repository defines the record operations.
type Repository interface {
	// Save inserts rec. A record with the same fingerprint must not exist.
	Save(ctx context.Context, rec *models.RefreshToken) error

	// FindByFingerprint returns the record for fp, or common.ErrorNotFound.
	FindByFingerprint(ctx context.Context, fp tokens.Fingerprint) (*models.RefreshToken, error)

	// DeleteByFingerprint removes the record for fp and reports whether a
	// record was actually removed. Deleting a missing record is not an error.
	DeleteByFingerprint(ctx context.Context, fp tokens.Fingerprint) (bool, error)
}

// Store hands out repositories and runs units of work against them.
type Store interface {
	// Repository returns a repository for standalone reads and writes.
	Repository() Repository

	// WithinTx runs fn against a transactional repository. Writes made
	// through it become visible together when fn returns nil, and not at
	// all otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}
