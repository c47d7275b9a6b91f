package admin

import (
	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// RegisterRoutes sets up all admin routes on the given Echo instance.
// Returns the admin group so other plugins can register additional admin routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authService auth.AuthService) *echo.Group {
	admin := e.Group("/admin",
		auth.RequireAuth(authService),
		auth.RequireSiteAdmin(),
	)

	admin.GET("", h.Dashboard)

	// User management.
	admin.GET("/users", h.Users)
	admin.PUT("/users/:id/admin", h.SetAdmin)

	// Campaign management.
	admin.GET("/campaigns", h.Campaigns)
	admin.POST("/campaigns", h.CreateCampaign)
	admin.DELETE("/campaigns/:id", h.DeleteCampaign)

	// Rosters.
	admin.GET("/campaigns/:id/members", h.Members)
	admin.POST("/campaigns/:id/members", h.AddMember)
	admin.DELETE("/campaigns/:id/members/:uid", h.RemoveMember)

	return admin
}
