package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/database"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/admin"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/audit"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/calendar"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/presence"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/sessions"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// RegisterRoutes wires every plugin and registers its routes. This is the
// single place where plugins meet; each gets its collaborators through
// the interfaces it declares.
func (a *App) RegisterRoutes() error {
	e := a.Echo
	sched := a.Config.Scheduling

	canon, err := timezone.NewCanonical(sched.CanonicalTimezone, sched.TimezoneAliases)
	if err != nil {
		return err
	}
	zones := timezone.NewRegistry(canon, timezone.Options{
		Mode: timezone.ParseReferenceMode(sched.ReferenceDateMode),
	})

	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := database.Check(ctx, a.DB, a.Redis); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Audit is wired first so other plugins can record activity.
	auditService := audit.NewAuditService(audit.NewAuditRepository(a.DB))

	// Auth plugin: users, login, logout, sessions.
	userRepo := auth.NewUserRepository(a.DB)
	authService := auth.NewAuthService(userRepo, a.Redis, a.Config.Auth.SessionTTL)
	auth.RegisterRoutes(e, auth.NewHandler(authService), authService)

	// Campaigns plugin: membership and roster.
	campaignService := campaigns.NewCampaignService(
		campaigns.NewCampaignRepository(a.DB),
		campaigns.NewUserFinderAdapter(userRepo),
		auditService,
	)
	campaigns.RegisterRoutes(e, campaigns.NewHandler(campaignService), campaignService, authService)

	// Availability plugin: per-user slot maps.
	availabilityService := availability.NewAvailabilityService(availability.NewAvailabilityRepository(a.DB))
	availability.RegisterRoutes(e, availability.NewHandler(availabilityService, zones), campaignService, authService)

	// Sessions plugin: scheduled sessions and the ICS feed.
	sessionService := sessions.NewSessionService(sessions.NewSessionRepository(a.DB), canon, auditService)
	sessions.RegisterRoutes(e, sessions.NewHandler(sessionService, zones), campaignService, authService)

	// Calendar plugin: the aggregated group view.
	calendarService := calendar.NewCalendarService(campaignService, availabilityService, sessionService, zones, calendar.ViewOptions{
		HourStart:      sched.HourStart,
		HourEnd:        sched.HourEnd,
		WeekStart:      sched.WeekStart,
		MaxFutureWeeks: sched.MaxFutureWeeks,
	})
	calendar.RegisterRoutes(e, calendar.NewHandler(calendarService), campaignService, authService)

	// Activity feed.
	audit.RegisterRoutes(e, audit.NewHandler(auditService), campaignService, authService)

	// Site administration, with presence under /admin/presence.
	adminGroup := admin.RegisterRoutes(e, admin.NewHandler(authService, campaignService, a.Presence), authService)
	presence.RegisterRoutes(adminGroup, presence.NewHandler(a.Presence))

	return nil
}
