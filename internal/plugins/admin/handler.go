// Package admin provides site-wide administration. Admin routes require the
// site admin flag (users.is_admin) and cover user management, campaign
// oversight, and campaign rosters.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/presence"
)

// ActiveLister reports recently active users for the dashboard.
type ActiveLister interface {
	Active(ctx context.Context, now time.Time) ([]presence.Entry, error)
}

// Handler handles admin HTTP requests. Depends on other plugins' services
// via interfaces -- no direct repo access.
type Handler struct {
	authService     auth.AuthService
	campaignService campaigns.CampaignService
	presence        ActiveLister // May be nil.
}

// NewHandler creates a new admin handler.
func NewHandler(authService auth.AuthService, campaignService campaigns.CampaignService, presence ActiveLister) *Handler {
	return &Handler{
		authService:     authService,
		campaignService: campaignService,
		presence:        presence,
	}
}

// DashboardResponse is the admin overview.
type DashboardResponse struct {
	Users       int `json:"users"`
	Campaigns   int `json:"campaigns"`
	ActiveUsers int `json:"active_users"`
}

// SetAdminRequest is the body of PUT /admin/users/:id/admin.
type SetAdminRequest struct {
	IsAdmin bool `json:"is_admin"`
}

// --- Dashboard ---

// Dashboard returns site counts (GET /admin).
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	var resp DashboardResponse
	if _, total, err := h.authService.ListUsers(ctx, 1, 1); err == nil {
		resp.Users = total
	}
	if list, err := h.campaignService.ListAll(ctx); err == nil {
		resp.Campaigns = len(list)
	}
	if h.presence != nil {
		if active, err := h.presence.Active(ctx, time.Now()); err == nil {
			resp.ActiveUsers = len(active)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// --- Users ---

// Users lists users a page at a time (GET /admin/users?page=).
func (h *Handler) Users(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage := 25

	users, total, err := h.authService.ListUsers(c.Request().Context(), page, perPage)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"users":    users,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// SetAdmin grants or revokes the site admin flag (PUT /admin/users/:id/admin).
func (h *Handler) SetAdmin(c echo.Context) error {
	var req SetAdminRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := h.authService.SetAdmin(c.Request().Context(), auth.GetUserID(c), c.Param("id"), req.IsAdmin); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Campaigns ---

// Campaigns lists every campaign (GET /admin/campaigns).
func (h *Handler) Campaigns(c echo.Context) error {
	list, err := h.campaignService.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// CreateCampaign creates a campaign owned by the calling admin
// (POST /admin/campaigns).
func (h *Handler) CreateCampaign(c echo.Context) error {
	var req campaigns.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	campaign, err := h.campaignService.Create(c.Request().Context(), auth.GetUserID(c), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, campaign)
}

// DeleteCampaign force-deletes a campaign (DELETE /admin/campaigns/:id).
func (h *Handler) DeleteCampaign(c echo.Context) error {
	campaignID := c.Param("id")

	if err := h.campaignService.Delete(c.Request().Context(), campaignID); err != nil {
		return err
	}

	slog.Info("admin deleted campaign",
		slog.String("campaign_id", campaignID),
		slog.String("by", auth.GetUserID(c)),
	)
	return c.NoContent(http.StatusNoContent)
}

// --- Roster ---

// Members lists a campaign's members (GET /admin/campaigns/:id/members).
func (h *Handler) Members(c echo.Context) error {
	members, err := h.campaignService.ListMembers(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// AddMember adds any user to any campaign
// (POST /admin/campaigns/:id/members).
func (h *Handler) AddMember(c echo.Context) error {
	var req campaigns.AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	role := campaigns.RolePlayer
	if req.Role != "" {
		role = campaigns.RoleFromString(req.Role)
	}

	member, err := h.campaignService.AddMember(c.Request().Context(), auth.GetUserID(c), c.Param("id"), req.Username, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, member)
}

// RemoveMember removes a user from a campaign
// (DELETE /admin/campaigns/:id/members/:uid).
func (h *Handler) RemoveMember(c echo.Context) error {
	if err := h.campaignService.RemoveMember(c.Request().Context(), auth.GetUserID(c), c.Param("id"), c.Param("uid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
