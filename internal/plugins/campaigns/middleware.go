package campaigns

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
)

// contextKeyCampaign is the Echo context key for campaign context data.
const contextKeyCampaign = "campaign_context"

// RequireCampaignAccess returns middleware that resolves the campaign from the
// :id URL parameter and the user's membership role. The resolved CampaignContext
// is injected into the Echo context for downstream handlers.
//
// Members get their stored role. Site admins who are not members get
// RoleNone with IsSiteAdmin set. Everyone else gets 403.
//
// Must be applied AFTER auth.RequireAuth.
func RequireCampaignAccess(service CampaignService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			campaignID := c.Param("id")
			if campaignID == "" {
				return apperror.NewBadRequest("campaign ID is required")
			}

			session := auth.GetSession(c)
			if session == nil {
				return apperror.NewUnauthorized("authentication required")
			}

			campaign, err := service.GetByID(c.Request().Context(), campaignID)
			if err != nil {
				return err
			}

			cc := &CampaignContext{
				Campaign:    campaign,
				IsSiteAdmin: session.IsAdmin,
				MemberRole:  RoleNone,
			}

			member, err := service.GetMember(c.Request().Context(), campaignID, session.UserID)
			switch {
			case err == nil:
				cc.MemberRole = member.Role
			case session.IsAdmin:
				// Site admins may view and manage any campaign.
			default:
				return apperror.NewForbidden("you are not a member of this campaign")
			}

			c.Set(contextKeyCampaign, cc)
			return next(c)
		}
	}
}

// RequireRole returns middleware that checks the user's membership role
// meets the minimum required level. Site admins pass as well.
//
// Must be applied AFTER RequireCampaignAccess.
func RequireRole(minRole Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := GetCampaignContext(c)
			if cc == nil {
				return apperror.NewInternal(
					fmt.Errorf("RequireRole used without RequireCampaignAccess"),
				)
			}
			if cc.MemberRole < minRole && !cc.IsSiteAdmin {
				return apperror.NewForbidden("insufficient permissions")
			}
			return next(c)
		}
	}
}

// RequireManager allows campaign owners and site admins.
func RequireManager() echo.MiddlewareFunc {
	return RequireRole(RoleOwner)
}

// GetCampaignContext retrieves the campaign context from the Echo context.
// Returns nil if RequireCampaignAccess middleware was not applied.
func GetCampaignContext(c echo.Context) *CampaignContext {
	cc, ok := c.Get(contextKeyCampaign).(*CampaignContext)
	if !ok {
		return nil
	}
	return cc
}

// SetCampaignContext installs a campaign context. Intended for handler tests.
func SetCampaignContext(c echo.Context, cc *CampaignContext) {
	c.Set(contextKeyCampaign, cc)
}
