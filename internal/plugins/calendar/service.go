package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/availability"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/plugins/sessions"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// RosterSource supplies the usernames counted as "total" for a campaign.
// Implemented by campaigns.CampaignService.
type RosterSource interface {
	Roster(ctx context.Context, campaignID string) ([]string, error)
}

// AvailabilitySource is the aggregation read path of the availability store.
type AvailabilitySource interface {
	GetAllAvailability(ctx context.Context, campaignID string, r availability.DateRange) (map[string]availability.SlotMap, bool, error)
}

// SessionSource lists scheduled sessions by canonical day.
type SessionSource interface {
	ListInRange(ctx context.Context, campaignID string, start, end time.Time) ([]sessions.ScheduledSession, error)
}

// CalendarService renders group availability views.
type CalendarService interface {
	GetView(ctx context.Context, req ViewRequest) (*CalendarResponse, error)
}

type calendarService struct {
	roster   RosterSource
	avail    AvailabilitySource
	sessions SessionSource
	zones    *timezone.Registry
	opts     ViewOptions
}

// NewCalendarService creates a new calendar service.
func NewCalendarService(roster RosterSource, avail AvailabilitySource, sessions SessionSource, zones *timezone.Registry, opts ViewOptions) CalendarService {
	return &calendarService{roster: roster, avail: avail, sessions: sessions, zones: zones, opts: opts}
}

// GetView resolves the viewer's zone, applies navigation, builds the view,
// then reads roster, availability and sessions for the canonical days the
// view touches and aggregates them. Store failures degrade the response
// instead of failing it.
func (s *calendarService) GetView(ctx context.Context, req ViewRequest) (*CalendarResponse, error) {
	viewer := s.zones.Viewer(req.Timezone)
	conv := viewer.Converter()
	today := viewer.Today()

	anchor := req.Anchor
	if anchor.IsZero() {
		anchor = today
	}
	anchor = Navigate(anchor, req.Zoom, req.Nav, today, s.opts)

	view, err := BuildView(anchor, req.Zoom, req.Fine, s.opts)
	if err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}

	local, err := availability.NewDateRange(view.Start(), view.End())
	if err != nil {
		return nil, apperror.NewBadRequest(err.Error())
	}
	fetch := local.Padded()

	roster, err := s.roster.Roster(ctx, req.CampaignID)
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading roster: %w", err))
	}

	all, degraded, err := s.avail.GetAllAvailability(ctx, req.CampaignID, fetch)
	if err != nil {
		return nil, err
	}

	list, err := s.sessions.ListInRange(ctx, req.CampaignID, fetch.Start, fetch.End)
	if err != nil {
		slog.Warn("session read degraded",
			slog.String("campaign_id", req.CampaignID),
			slog.String("start", timezone.FormatDate(fetch.Start)),
			slog.String("end", timezone.FormatDate(fetch.End)),
			slog.Any("error", err),
		)
		list = nil
		degraded = true
	}

	grid := Aggregate(view, roster, all, req.Username, list, conv)

	dates := make([]string, len(view.Dates))
	for i, d := range view.Dates {
		dates[i] = timezone.FormatDate(d)
	}

	return &CalendarResponse{
		Timezone:    viewer.Name,
		IsCanonical: viewer.IsCanonical,
		Anchor:      timezone.FormatDate(view.Anchor),
		Zoom:        view.Zoom,
		Fine:        view.Fine,
		Dates:       dates,
		Hours:       view.Hours,
		Slots:       grid.Days,
		RosterSize:  grid.Total,
		Degraded:    degraded,
		CanForward:  Navigate(view.Anchor, view.Zoom, Forward, today, s.opts).After(view.Anchor),
	}, nil
}
