package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 40
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenPairs is the part of TokenPairManager the account flows need.
type TokenPairs interface {
	Mint(ctx context.Context, userID string) (*TokenPair, error)
	Renew(ctx context.Context, raw tokens.RawSecret) (*TokenPair, error)
}

// RefreshRevoker revokes refresh tokens on logout.
type RefreshRevoker interface {
	Revoke(ctx context.Context, raw tokens.RawSecret) error
}

// AuthService implements the account flows behind the transports:
// registration, login, pair renewal and logout.
type AuthService struct {
	users   users.Store
	hasher  PasswordHasher
	pairs   TokenPairs
	revoker RefreshRevoker
	log     logging.Logger

	// dummyHash is compared against when the user does not exist so a
	// failed login costs the same either way.
	dummyHash string
}

func NewAuthService(store users.Store, hasher PasswordHasher, pairs TokenPairs, revoker RefreshRevoker, log logging.Logger) (*AuthService, error) {
	if log == nil {
		log = logging.Nop{}
	}
	dummy, err := hasher.Hash("authkeeper-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("error preparing password hasher: %w", err)
	}
	return &AuthService{
		users:     store,
		hasher:    hasher,
		pairs:     pairs,
		revoker:   revoker,
		log:       log.With("module", "auth"),
		dummyHash: dummy,
	}, nil
}

// ValidateCredentials checks the username and password length rules.
func ValidateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return fmt.Errorf("%w: username must be %d-%d characters", common.ErrorValidation, MinUsernameLength, MaxUsernameLength)
	}
	if n := len(password); n < MinPasswordLength || n > MaxPasswordLength {
		return fmt.Errorf("%w: password must be %d-%d bytes", common.ErrorValidation, MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

// CreateUser stores a new active user holding roles. The user row and its
// role memberships are written in one transaction.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, roles []models.Role) (*models.User, error) {
	if err := ValidateCredentials(username, password); err != nil {
		return nil, err
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, r)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserName:     username,
		PasswordHash: hash,
		IsActive:     true,
		Roles:        roles,
	}
	err = s.users.WithinTx(ctx, func(ctx context.Context, repo users.Repository) error {
		var err error
		user, err = repo.Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user created", "user_id", user.ID, "username", user.UserName)
	return user, nil
}

// Register creates a USER account and signs it in.
func (s *AuthService) Register(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.CreateUser(ctx, username, password, []models.Role{models.RoleUser})
	if err != nil {
		return nil, err
	}
	return s.pairs.Mint(ctx, user.ID)
}

// Login verifies the credentials and mints a pair. Unknown users, inactive
// users and wrong passwords are all common.ErrorUnauthorized.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.users.Repository().FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyHash)
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		s.log.Warn(ctx, "login rejected", "username", username)
		return nil, common.ErrorUnauthorized
	}

	return s.pairs.Mint(ctx, user.ID)
}

// Refresh exchanges raw for a new pair.
func (s *AuthService) Refresh(ctx context.Context, raw tokens.RawSecret) (*TokenPair, error) {
	if raw == "" {
		return nil, common.ErrInvalidRefreshToken
	}
	return s.pairs.Renew(ctx, raw)
}

// Logout revokes raw. Logging out without a token, or with one that is no
// longer valid, succeeds.
func (s *AuthService) Logout(ctx context.Context, raw tokens.RawSecret) error {
	if raw == "" {
		return nil
	}
	return s.revoker.Revoke(ctx, raw)
}
