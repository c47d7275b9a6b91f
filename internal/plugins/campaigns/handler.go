package campaigns

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// Handler handles HTTP requests for campaign operations. Handlers are thin:
// bind request, call service, write JSON.
type Handler struct {
	service CampaignService
}

// NewHandler creates a new campaign handler.
func NewHandler(service CampaignService) *Handler {
	return &Handler{service: service}
}

// Index lists the caller's campaigns (GET /campaigns).
func (h *Handler) Index(c echo.Context) error {
	list, err := h.service.List(c.Request().Context(), auth.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Show returns one campaign with the caller's role (GET /campaigns/:id).
func (h *Handler) Show(c echo.Context) error {
	cc := GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"campaign":   cc.Campaign,
		"role":       cc.MemberRole,
		"can_manage": cc.CanManage(),
	})
}

// Members lists the roster (GET /campaigns/:id/members).
func (h *Handler) Members(c echo.Context) error {
	cc := GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	members, err := h.service.ListMembers(c.Request().Context(), cc.Campaign.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// AddMember adds a user by username (POST /campaigns/:id/members).
func (h *Handler) AddMember(c echo.Context) error {
	cc := GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}

	var req AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	role := RoleFromString(req.Role)
	if req.Role == "" {
		role = RolePlayer
	}

	member, err := h.service.AddMember(c.Request().Context(), auth.GetUserID(c), cc.Campaign.ID, req.Username, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, member)
}

// RemoveMember removes a user (DELETE /campaigns/:id/members/:uid).
func (h *Handler) RemoveMember(c echo.Context) error {
	cc := GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	if err := h.service.RemoveMember(c.Request().Context(), auth.GetUserID(c), cc.Campaign.ID, c.Param("uid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
