package sessions

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// Handler handles HTTP requests for scheduled sessions.
type Handler struct {
	svc   SessionService
	zones *timezone.Registry
}

// NewHandler creates a new session handler.
func NewHandler(svc SessionService, zones *timezone.Registry) *Handler {
	return &Handler{svc: svc, zones: zones}
}

// List returns the campaign's sessions, optionally limited to a canonical
// date range.
// GET /campaigns/:id/sessions?start=&end=
func (h *Handler) List(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	ctx := c.Request().Context()

	var (
		list []ScheduledSession
		err  error
	)
	start, end := c.QueryParam("start"), c.QueryParam("end")
	if start != "" || end != "" {
		s, perr := timezone.ParseDate(start)
		if perr != nil {
			return apperror.NewBadRequest(perr.Error())
		}
		e, perr := timezone.ParseDate(end)
		if perr != nil {
			return apperror.NewBadRequest(perr.Error())
		}
		list, err = h.svc.ListInRange(ctx, cc.Campaign.ID, s, e)
	} else {
		list, err = h.svc.List(ctx, cc.Campaign.ID)
	}
	if err != nil {
		return err
	}

	viewer := h.zones.Viewer(auth.RequestTimezone(c))
	views := make([]SessionView, 0, len(list))
	for _, s := range list {
		views = append(views, toView(s, viewer))
	}
	return c.JSON(http.StatusOK, views)
}

// Show returns one session.
// GET /campaigns/:id/sessions/:sid
func (h *Handler) Show(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	s, err := h.svc.Get(c.Request().Context(), cc.Campaign.ID, c.Param("sid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toView(*s, h.zones.Viewer(auth.RequestTimezone(c))))
}

// Create schedules a session. Times in the body are canonical.
// POST /campaigns/:id/sessions
func (h *Handler) Create(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}

	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	s, err := h.svc.Create(c.Request().Context(), CreateSessionInput{
		CampaignID: cc.Campaign.ID,
		Title:      req.Title,
		Date:       req.Date,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Notes:      req.Notes,
		CreatedBy:  auth.GetUserID(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toView(*s, h.zones.Viewer(auth.RequestTimezone(c))))
}

// Delete removes a session.
// DELETE /campaigns/:id/sessions/:sid
func (h *Handler) Delete(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	if err := h.svc.Delete(c.Request().Context(), auth.GetUserID(c), cc.Campaign.ID, c.Param("sid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportICS downloads the campaign's sessions as an iCalendar file.
// GET /campaigns/:id/sessions.ics
func (h *Handler) ExportICS(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}

	body, err := h.svc.ExportICS(c.Request().Context(), cc.Campaign.ID, cc.Campaign.Name)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s.ics"`, fileSlug(cc.Campaign.Name)))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// toView adds the viewer-local placement of a session.
func toView(s ScheduledSession, viewer *timezone.Viewer) SessionView {
	v := SessionView{ScheduledSession: s}
	day, err := timezone.ParseDate(s.Date)
	if err != nil {
		return v
	}
	localDay, localStart := viewer.Converter().CanonicalToLocalSlot(day, s.StartTime)
	v.Local = LocalTimes{
		Timezone:  viewer.Name,
		Date:      timezone.FormatDate(localDay),
		StartTime: localStart,
		EndTime:   localStart + s.Duration(),
	}
	return v
}

// fileSlug makes a campaign name safe for a download filename.
func fileSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "sessions"
	}
	return b.String()
}
