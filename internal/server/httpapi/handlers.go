package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/dmitrijs2005/authkeeper/internal/server/session"
	"github.com/labstack/echo/v4"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Message     string    `json:"message"`
	AccessToken string    `json:"access_token"`
	Timestamp   time.Time `json:"timestamp"`
}

type messageResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type meResponse struct {
	Username    string        `json:"username"`
	Authorities []models.Role `json:"authorities"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

func (s *Server) carrier(c echo.Context) session.Carrier {
	return session.NewCookieCarrier(c, s.cookies)
}

// issue sets the refresh cookie and writes the access token.
func (s *Server) issue(c echo.Context, status int, message string, pair *services.TokenPair) error {
	if err := s.carrier(c).Set(pair.RefreshToken); err != nil {
		return err
	}
	return c.JSON(status, tokenResponse{
		Message:     message,
		AccessToken: pair.AccessToken,
		Timestamp:   time.Now().UTC(),
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, messageResponse{Message: "ok", Timestamp: time.Now().UTC()})
}

func (s *Server) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return common.ErrorValidation
	}
	pair, err := s.auth.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return s.issue(c, http.StatusCreated, "user registered", pair)
}

func (s *Server) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return common.ErrorValidation
	}
	pair, err := s.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return s.issue(c, http.StatusOK, "login successful", pair)
}

func (s *Server) refresh(c echo.Context) error {
	carrier := s.carrier(c)
	raw, ok := carrier.Read()
	if !ok {
		return common.ErrInvalidRefreshToken
	}
	pair, err := s.auth.Refresh(c.Request().Context(), raw)
	if err != nil {
		if errors.Is(err, common.ErrInvalidRefreshToken) {
			_ = carrier.Clear()
		}
		return err
	}
	return s.issue(c, http.StatusOK, "token refreshed", pair)
}

func (s *Server) logout(c echo.Context) error {
	carrier := s.carrier(c)
	raw, _ := carrier.Read()
	if err := s.auth.Logout(c.Request().Context(), raw); err != nil {
		return err
	}
	if err := carrier.Clear(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out", Timestamp: time.Now().UTC()})
}

func (s *Server) me(c echo.Context) error {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	if !ok {
		return common.ErrorUnauthorized
	}
	resp := meResponse{Username: claims.Subject, Authorities: claims.Authorities}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return c.JSON(http.StatusOK, resp)
}
