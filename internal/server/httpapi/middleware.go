package httpapi

import (
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/labstack/echo/v4"
)

const claimsKey = "claims"

// bearerAuth verifies the Authorization bearer token and stores its claims
// under claimsKey. No store is consulted.
func (s *Server) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			return common.ErrInvalidAccessToken
		}
		claims, err := s.claims.ExtractClaims(token)
		if err != nil {
			return err
		}
		c.Set(claimsKey, claims)
		return next(c)
	}
}
