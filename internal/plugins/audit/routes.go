package audit

import (
	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
)

// RegisterRoutes sets up the activity feed route.
func RegisterRoutes(e *echo.Echo, h *Handler, campaignSvc campaigns.CampaignService, authSvc auth.AuthService) {
	cg := e.Group("/campaigns/:id",
		auth.RequireAuth(authSvc),
		campaigns.RequireCampaignAccess(campaignSvc),
	)
	cg.GET("/activity", h.Activity, campaigns.RequireManager())
}
