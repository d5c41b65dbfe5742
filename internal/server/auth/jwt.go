// Package auth issues and verifies the stateless access tokens handed out
// next to every refresh secret.
//
// Tokens are compact HS256 JWS strings. Verification needs only the signing
// key, never a store lookup, so any replica holding the key can
// authenticate a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is what an access token asserts about its holder.
type Identity struct {
	Username    string
	Authorities []models.Role
}

// Claims is the JWT payload. Subject carries the username.
type Claims struct {
	jwt.RegisteredClaims
	Authorities []models.Role `json:"authorities"`
}

// Codec signs and verifies access tokens.
type Codec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// WithIssuer sets the iss claim written and required on parse.
func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = issuer
	}
}

// NewCodec returns a codec signing with secret. ttl is the lifetime of every
// token it generates.
func NewCodec(secret []byte, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing key is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("access token ttl must be positive, got %s", ttl)
	}

	c := &Codec{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Generate mints a signed token for id.
func (c *Codec) Generate(id Identity) (string, error) {
	now := c.now()

	authorities := id.Authorities
	if authorities == nil {
		authorities = []models.Role{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Username,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Authorities: authorities,
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("error signing access token: %w", err)
	}
	return s, nil
}

// ExtractClaims verifies tokenString and returns its claims. Every failure,
// whether a bad signature, a foreign algorithm, a malformed payload or an
// expired token, is reported as common.ErrInvalidAccessToken.
func (c *Codec) ExtractClaims(tokenString string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidAccessToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidAccessToken
	}

	return claims, nil
}

// Identity converts verified claims back into the principal they describe.
func (c *Claims) Identity() Identity {
	return Identity{Username: c.Subject, Authorities: c.Authorities}
}
