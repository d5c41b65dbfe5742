package httpapi

import "github.com/labstack/echo/v4"

func (s *Server) registerRoutes(e *echo.Echo) {
	e.GET("/healthz", s.health)

	v1 := e.Group("/api/v1")

	a := v1.Group("/auth")
	a.POST("/register", s.register)
	a.POST("/login", s.login)
	a.POST("/tokens/refresh", s.refresh)
	a.DELETE("/logout", s.logout)

	v1.GET("/me", s.me, s.bearerAuth)
}
