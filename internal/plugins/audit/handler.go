package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
)

// Handler handles HTTP requests for audit log operations.
type Handler struct {
	service AuditService
}

// NewHandler creates a new audit handler.
func NewHandler(service AuditService) *Handler {
	return &Handler{service: service}
}

// Activity returns the campaign activity feed (GET /campaigns/:id/activity).
// Restricted to owners and site admins via route middleware.
func (h *Handler) Activity(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	result, err := h.service.GetCampaignActivity(c.Request().Context(), cc.Campaign.ID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}
