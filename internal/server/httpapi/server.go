// Package httpapi exposes the account and token flows over HTTP using echo.
// The refresh secret travels in a cookie; the access token is returned in
// the JSON body and presented back as a bearer token.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/session"
	"github.com/dmitrijs2005/authkeeper/internal/server/tokens"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 10 * time.Second

// AuthService is the account API the handlers drive.
type AuthService interface {
	Register(ctx context.Context, username, password string) (*services.TokenPair, error)
	Login(ctx context.Context, username, password string) (*services.TokenPair, error)
	Refresh(ctx context.Context, raw tokens.RawSecret) (*services.TokenPair, error)
	Logout(ctx context.Context, raw tokens.RawSecret) error
}

// ClaimsExtractor verifies bearer tokens.
type ClaimsExtractor interface {
	ExtractClaims(token string) (*auth.Claims, error)
}

type Server struct {
	address string
	auth    AuthService
	claims  ClaimsExtractor
	cookies session.CookieOptions
	logger  logging.Logger
	echo    *echo.Echo
}

func NewServer(address string, l logging.Logger, a AuthService, c ClaimsExtractor, cookies session.CookieOptions) *Server {
	s := &Server{
		address: address,
		auth:    a,
		claims:  c,
		cookies: cookies,
		logger:  l.With("module", "http_server"),
	}
	s.echo = s.newEcho()
	return s
}

func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler
	e.Use(middleware.Recover())
	e.Use(s.requestLogger)
	s.registerRoutes(e)
	return e
}

// Handler returns the routed echo instance, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.logger.Debug(req.Context(), "request",
			"method", req.Method,
			"path", c.Path(),
			"status", c.Response().Status,
			"duration", time.Since(start),
		)
		return nil
	}
}
