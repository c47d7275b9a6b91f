package availability

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/auth"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/campaigns"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// defaultRangeDays is the span served when no start/end is given.
const defaultRangeDays = 7

// Handler serves the caller's own availability in their local zone and
// converts writes back to canonical time.
type Handler struct {
	service AvailabilityService
	zones   *timezone.Registry
}

// NewHandler creates a new availability handler.
func NewHandler(service AvailabilityService, zones *timezone.Registry) *Handler {
	return &Handler{service: service, zones: zones}
}

// Get returns the caller's slots for a local date range
// (GET /campaigns/:id/availability?start=&end=).
func (h *Handler) Get(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}
	viewer := h.zones.Viewer(auth.RequestTimezone(c))

	window, err := h.localWindow(c, viewer)
	if err != nil {
		return err
	}

	canonical, degraded, err := h.service.GetUserAvailability(c.Request().Context(),
		auth.GetUsername(c), cc.Campaign.ID, window.Padded())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UserAvailabilityResponse{
		Timezone: viewer.Name,
		Start:    timezone.FormatDate(window.Start),
		End:      timezone.FormatDate(window.End),
		Slots:    Localize(canonical, viewer.Converter(), window),
		Degraded: degraded,
	})
}

// Set stores one slot given in the caller's local zone
// (PUT /campaigns/:id/availability).
func (h *Handler) Set(c echo.Context) error {
	cc := campaigns.GetCampaignContext(c)
	if cc == nil {
		return apperror.NewMissingContext()
	}

	var req SetSlotRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	localDay, err := timezone.ParseDate(req.Date)
	if err != nil {
		return apperror.NewBadRequest(err.Error())
	}
	if !timezone.ValidHour(req.Hour) {
		return apperror.NewBadRequest("hour must be a whole or half hour in [0, 24)")
	}

	viewer := h.zones.Viewer(auth.RequestTimezone(c))
	day, hour := viewer.Converter().LocalToCanonicalSlot(localDay, req.Hour)

	if err := h.service.SetSlot(c.Request().Context(), auth.GetUsername(c), cc.Campaign.ID, day, hour, req.Available); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SetSlotResponse{
		Date:          req.Date,
		Hour:          req.Hour,
		CanonicalDate: timezone.FormatDate(day),
		CanonicalHour: hour,
		Available:     req.Available,
	})
}

// localWindow reads start/end or defaults to a week from the viewer's today.
func (h *Handler) localWindow(c echo.Context, viewer *timezone.Viewer) (DateRange, error) {
	start, end := c.QueryParam("start"), c.QueryParam("end")
	if start == "" && end == "" {
		today := viewer.Today()
		return DateRange{Start: today, End: timezone.AddDays(today, defaultRangeDays-1)}, nil
	}
	if start == "" || end == "" {
		return DateRange{}, apperror.NewBadRequest("start and end must be given together")
	}
	r, err := ParseDateRange(start, end)
	if err != nil {
		return DateRange{}, apperror.NewBadRequest(err.Error())
	}
	return r, nil
}
