package sessions

import (
	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
)

// RegisterRoutes sets up all session-related routes. Members can read;
// owners and site admins schedule and delete.
func RegisterRoutes(e *echo.Echo, h *Handler,
	campaignSvc campaigns.CampaignService, authSvc auth.AuthService) {

	cg := e.Group("/campaigns/:id",
		auth.RequireAuth(authSvc),
		campaigns.RequireCampaignAccess(campaignSvc),
	)
	cg.GET("/sessions", h.List, campaigns.RequireRole(campaigns.RolePlayer))
	cg.GET("/sessions.ics", h.ExportICS, campaigns.RequireRole(campaigns.RolePlayer))
	cg.GET("/sessions/:sid", h.Show, campaigns.RequireRole(campaigns.RolePlayer))

	cg.POST("/sessions", h.Create, campaigns.RequireManager())
	cg.DELETE("/sessions/:sid", h.Delete, campaigns.RequireManager())
}
