// Package services contains server-side business logic: the refresh token
// state machine, the token pair orchestrator built on top of it, and the
// account flows (register, login, refresh, logout) exposed by the
// transports.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// UserFinder resolves the owner of a refresh token.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RefreshTokenDetails is handed to the caller once per Generate or Rotate.
// Raw is the only copy of the secret the server ever holds.
type RefreshTokenDetails struct {
	Raw    tokens.RawSecret
	User   *models.User
	Expiry time.Time
	Active bool
}

// RefreshTokenManager owns the refresh token lifecycle:
// absent -> active -> rotated away | revoked | expired.
// Expiry is never stored as a state; it is judged against the clock on
// every read.
type RefreshTokenManager struct {
	store refreshtokens.Store
	users UserFinder
	ttl   time.Duration
	now   func() time.Time
	log   logging.Logger
}

// RefreshOption customises a RefreshTokenManager.
type RefreshOption func(*RefreshTokenManager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RefreshOption {
	return func(m *RefreshTokenManager) {
		m.now = now
	}
}

// NewRefreshTokenManager returns a manager issuing tokens valid for ttl.
func NewRefreshTokenManager(store refreshtokens.Store, users UserFinder, ttl time.Duration, log logging.Logger, opts ...RefreshOption) *RefreshTokenManager {
	if log == nil {
		log = logging.Nop{}
	}
	m := &RefreshTokenManager{
		store: store,
		users: users,
		ttl:   ttl,
		now:   time.Now,
		log:   log.With("module", "refresh"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the lifetime given to new refresh tokens.
func (m *RefreshTokenManager) TTL() time.Duration {
	return m.ttl
}

// Generate issues a new refresh token for userID. A missing or inactive
// user yields common.ErrUserNotFound.
func (m *RefreshTokenManager) Generate(ctx context.Context, userID string) (*RefreshTokenDetails, error) {
	user, err := m.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	if !user.IsActive {
		return nil, common.ErrUserNotFound
	}

	var details *RefreshTokenDetails
	err = m.store.WithinTx(ctx, func(ctx context.Context, repo refreshtokens.Repository) error {
		var err error
		details, err = m.issue(ctx, repo, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	m.log.Debug(ctx, "refresh token issued", "user_id", user.ID)
	return details, nil
}

// IsValid reports whether raw may still be exchanged. It never mutates the
// store and never fails: store errors are logged and reported as false.
func (m *RefreshTokenManager) IsValid(ctx context.Context, raw tokens.RawSecret) bool {
	rec, err := m.store.Repository().FindByFingerprint(ctx, tokens.Protect(raw))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			m.log.Error(ctx, "refresh token lookup failed", "error", err)
		}
		return false
	}
	return rec.Usable(m.now())
}

// Rotate consumes raw and issues its replacement for the same owner in one
// unit of work. Unknown, expired, inactive, already consumed and orphaned
// tokens all yield common.ErrInvalidRefreshToken. Of two concurrent
// rotations of the same secret at most one succeeds.
func (m *RefreshTokenManager) Rotate(ctx context.Context, raw tokens.RawSecret) (*RefreshTokenDetails, error) {
	fp := tokens.Protect(raw)

	var details *RefreshTokenDetails
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo refreshtokens.Repository) error {
		rec, err := repo.FindByFingerprint(ctx, fp)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if !rec.Usable(m.now()) {
			return common.ErrInvalidRefreshToken
		}

		deleted, err := repo.DeleteByFingerprint(ctx, fp)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			// Consumed by a concurrent rotation or revocation.
			return common.ErrInvalidRefreshToken
		}

		user, err := m.users.FindByID(ctx, rec.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidRefreshToken
			}
			return fmt.Errorf("error searching user: %w", err)
		}
		if !user.IsActive {
			return common.ErrInvalidRefreshToken
		}

		details, err = m.issue(ctx, repo, user)
		return err
	})
	if err != nil {
		if errors.Is(err, refreshtokens.ErrConflict) {
			return nil, common.ErrInvalidRefreshToken
		}
		return nil, err
	}

	m.log.Debug(ctx, "refresh token rotated", "user_id", details.User.ID)
	return details, nil
}

// Revoke deletes the record behind raw. Revoking an unknown or already
// revoked token succeeds.
func (m *RefreshTokenManager) Revoke(ctx context.Context, raw tokens.RawSecret) error {
	fp := tokens.Protect(raw)
	err := m.store.WithinTx(ctx, func(ctx context.Context, repo refreshtokens.Repository) error {
		if _, err := repo.DeleteByFingerprint(ctx, fp); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		return nil
	})
	if errors.Is(err, refreshtokens.ErrConflict) {
		// Someone else removed or replaced it first; either way it is gone.
		return nil
	}
	return err
}

// FindByToken returns whatever record backs raw without judging expiry or
// the active flag. ok is false when there is no record.
func (m *RefreshTokenManager) FindByToken(ctx context.Context, raw tokens.RawSecret) (details *RefreshTokenDetails, ok bool, err error) {
	rec, err := m.store.Repository().FindByFingerprint(ctx, tokens.Protect(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("error searching refresh token: %w", err)
	}

	user, err := m.users.FindByID(ctx, rec.UserID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		user = &models.User{ID: rec.UserID}
	case err != nil:
		return nil, false, fmt.Errorf("error searching user: %w", err)
	}

	return &RefreshTokenDetails{
		Raw:    raw,
		User:   user,
		Expiry: rec.ExpiresAt,
		Active: rec.Active,
	}, true, nil
}

func (m *RefreshTokenManager) issue(ctx context.Context, repo refreshtokens.Repository, user *models.User) (*RefreshTokenDetails, error) {
	raw, err := tokens.NewRawSecret()
	if err != nil {
		return nil, err
	}

	rec := &models.RefreshToken{
		Fingerprint: tokens.Protect(raw),
		UserID:      user.ID,
		Active:      true,
		ExpiresAt:   m.now().Add(m.ttl),
	}
	if err := repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	return &RefreshTokenDetails{
		Raw:    raw,
		User:   user,
		Expiry: rec.ExpiresAt,
		Active: true,
	}, nil
}
