package availability

import (
	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
)

// RegisterRoutes sets up availability routes. Each member reads and writes
// only their own slots; the group view lives in the calendar plugin.
func RegisterRoutes(e *echo.Echo, h *Handler, campaignSvc campaigns.CampaignService, authSvc auth.AuthService) {
	cg := e.Group("/campaigns/:id",
		auth.RequireAuth(authSvc),
		campaigns.RequireCampaignAccess(campaignSvc),
	)
	cg.GET("/availability", h.Get, campaigns.RequireRole(campaigns.RolePlayer))
	cg.PUT("/availability", h.Set, campaigns.RequireRole(campaigns.RolePlayer))
}
