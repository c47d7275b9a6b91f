package presence

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes adds the presence listing to the admin group.
func RegisterRoutes(admin *echo.Group, h *Handler) {
	admin.GET("/presence", h.List)
}
