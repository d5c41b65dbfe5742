package session

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/labstack/echo/v4"
)

// CookiePath scopes the refresh cookie to the auth endpoints.
const CookiePath = "/api/v1/auth"

// CookieOptions are the per-deployment cookie attributes.
type CookieOptions struct {
	Secure bool
	MaxAge time.Duration
	Path   string
}

// CookieCarrier carries the secret in an HttpOnly, SameSite=Strict cookie.
type CookieCarrier struct {
	c    echo.Context
	opts CookieOptions
}

func NewCookieCarrier(c echo.Context, opts CookieOptions) *CookieCarrier {
	if opts.Path == "" {
		opts.Path = CookiePath
	}
	return &CookieCarrier{c: c, opts: opts}
}

func (k *CookieCarrier) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     common.RefreshTokenCarrierName,
		Value:    value,
		Path:     k.opts.Path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   k.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (k *CookieCarrier) Set(raw tokens.RawSecret) error {
	k.c.SetCookie(k.cookie(raw.Value(), int(k.opts.MaxAge/time.Second)))
	return nil
}

func (k *CookieCarrier) Read() (tokens.RawSecret, bool) {
	ck, err := k.c.Cookie(common.RefreshTokenCarrierName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	return tokens.RawSecret(ck.Value), true
}

func (k *CookieCarrier) Clear() error {
	k.c.SetCookie(k.cookie("", -1))
	return nil
}
