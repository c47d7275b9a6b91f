package calendar

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// Handler serves the group calendar.
type Handler struct {
	svc CalendarService
}

// NewHandler creates a new calendar handler.
func NewHandler(svc CalendarService) *Handler {
	return &Handler{svc: svc}
}

// Show renders the aggregated view.
// GET /campaigns/:id/calendar?anchor=&zoom=&fine=&tz=&nav=
func (h *Handler) Show(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}

	req, err := parseViewRequest(c)
	if err != nil {
		return err
	}
	req.CampaignID = cc.Campaign.ID
	req.Username = auth.GetUsername(c)
	req.Timezone = auth.RequestTimezone(c)

	resp, err := h.svc.GetView(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func parseViewRequest(c echo.Context) (ViewRequest, error) {
	var req ViewRequest

	if s := c.QueryParam("anchor"); s != "" {
		d, err := timezone.ParseDate(s)
		if err != nil {
			return req, apperror.NewBadRequest(err.Error())
		}
		req.Anchor = d
	}

	zoom, err := ParseZoom(c.QueryParam("zoom"))
	if err != nil {
		return req, apperror.NewBadRequest(err.Error())
	}
	req.Zoom = zoom

	if s := c.QueryParam("fine"); s != "" {
		fine, err := strconv.ParseBool(s)
		if err != nil {
			return req, apperror.NewBadRequest("fine must be true or false")
		}
		req.Fine = fine
	}

	nav, err := ParseDirection(c.QueryParam("nav"))
	if err != nil {
		return req, apperror.NewBadRequest(err.Error())
	}
	req.Nav = nav
	return req, nil
}
