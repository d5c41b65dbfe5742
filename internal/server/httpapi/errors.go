package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// statusFor maps domain errors to HTTP statuses. Anything unknown is a 500
// whose details stay in the log.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, common.ErrInvalidRefreshToken.Error()
	case errors.Is(err, common.ErrInvalidAccessToken):
		return http.StatusUnauthorized, common.ErrInvalidAccessToken.Error()
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, common.ErrUserNotFound):
		return http.StatusNotFound, common.ErrUserNotFound.Error()
	case errors.Is(err, common.ErrUserAlreadyExists):
		return http.StatusConflict, common.ErrUserAlreadyExists.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, common.ErrorInternal.Error()
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = c.JSON(he.Code, errorResponse{Error: msg, Timestamp: time.Now().UTC()})
		return
	}

	code, msg := statusFor(err)
	if code == http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request failed", "path", c.Path(), "error", err)
	}
	_ = c.JSON(code, errorResponse{Error: msg, Timestamp: time.Now().UTC()})
}
