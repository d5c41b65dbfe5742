package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

// TokenPair bundles a short-lived access token and a long-lived refresh
// secret. It is returned to the client exactly once.
type TokenPair struct {
	AccessToken  string
	RefreshToken tokens.RawSecret
}

// RefreshTokens is the part of RefreshTokenManager the orchestrator needs.
type RefreshTokens interface {
	Generate(ctx context.Context, userID string) (*RefreshTokenDetails, error)
	Rotate(ctx context.Context, raw tokens.RawSecret) (*RefreshTokenDetails, error)
	Revoke(ctx context.Context, raw tokens.RawSecret) error
}

// AccessTokenIssuer signs access tokens.
type AccessTokenIssuer interface {
	Generate(id auth.Identity) (string, error)
}

// TokenPairManager pairs every refresh token mutation with a matching
// access token so a caller never sees one without the other.
type TokenPairManager struct {
	refresh RefreshTokens
	access  AccessTokenIssuer
	log     logging.Logger
}

func NewTokenPairManager(refresh RefreshTokens, access AccessTokenIssuer, log logging.Logger) *TokenPairManager {
	if log == nil {
		log = logging.Nop{}
	}
	return &TokenPairManager{
		refresh: refresh,
		access:  access,
		log:     log.With("module", "tokens"),
	}
}

// Mint issues a fresh pair for userID. common.ErrUserNotFound is returned
// unchanged.
func (m *TokenPairManager) Mint(ctx context.Context, userID string) (*TokenPair, error) {
	details, err := m.refresh.Generate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return m.pair(ctx, details)
}

// Renew rotates raw and returns the pair built on its replacement.
// common.ErrInvalidRefreshToken is returned unchanged.
func (m *TokenPairManager) Renew(ctx context.Context, raw tokens.RawSecret) (*TokenPair, error) {
	details, err := m.refresh.Rotate(ctx, raw)
	if err != nil {
		return nil, err
	}
	return m.pair(ctx, details)
}

// pair signs the access token for details. When signing fails the new
// refresh token is revoked again so no unpaired secret stays usable.
func (m *TokenPairManager) pair(ctx context.Context, details *RefreshTokenDetails) (*TokenPair, error) {
	access, err := m.access.Generate(auth.Identity{
		Username:    details.User.UserName,
		Authorities: details.User.Roles,
	})
	if err != nil {
		if rErr := m.refresh.Revoke(ctx, details.Raw); rErr != nil {
			m.log.Error(ctx, "error revoking unpaired refresh token", "user_id", details.User.ID, "error", rErr)
		}
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	return &TokenPair{AccessToken: access, RefreshToken: details.Raw}, nil
}
