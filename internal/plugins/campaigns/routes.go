package campaigns

import (
	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// RegisterRoutes sets up campaign routes. Creating and deleting campaigns is
// a site-admin operation and lives in the admin plugin.
func RegisterRoutes(e *echo.Echo, h *Handler, svc CampaignService, authSvc auth.AuthService) {
	e.GET("/campaigns", h.Index, auth.RequireAuth(authSvc))

	cg := e.Group("/campaigns/:id",
		auth.RequireAuth(authSvc),
		RequireCampaignAccess(svc),
	)
	cg.GET("", h.Show, RequireRole(RolePlayer))
	cg.GET("/members", h.Members, RequireRole(RolePlayer))

	// Roster management (owner or site admin).
	cg.POST("/members", h.AddMember, RequireManager())
	cg.DELETE("/members/:uid", h.RemoveMember, RequireManager())
}
