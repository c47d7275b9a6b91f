package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/middleware"
)

// RegisterRoutes sets up all auth-related routes on the given Echo instance.
// Login and register are public and rate-limited per IP (10/min and 5/min).
func RegisterRoutes(e *echo.Echo, h *Handler, svc AuthService) {
	e.POST("/login", h.Login, middleware.RateLimit(10, time.Minute))
	e.POST("/register", h.Register, middleware.RateLimit(5, time.Minute))
	e.POST("/logout", h.Logout)

	me := e.Group("/me", RequireAuth(svc))
	me.GET("", h.Me)
	me.PUT("/timezone", h.UpdateTimezone)
}
