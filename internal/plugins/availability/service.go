package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// AvailabilityService is the store adapter the calendar and the HTTP layer
// call. Reads take and return canonical days and hours.
type AvailabilityService interface {
	// GetUserAvailability returns one user's slots in the range. When the
	// store cannot be read the map is empty and degraded is true.
	GetUserAvailability(ctx context.Context, username, campaignID string, r DateRange) (slots SlotMap, degraded bool, err error)

	// GetAllAvailability returns every user's slots in the range, keyed by
	// username. Store failures degrade to an empty map as above.
	GetAllAvailability(ctx context.Context, campaignID string, r DateRange) (all map[string]SlotMap, degraded bool, err error)

	// SetSlot persists one canonical slot. A store failure is returned as a
	// 503 so the caller can revert its optimistic state.
	SetSlot(ctx context.Context, username, campaignID string, day time.Time, hour float64, available bool) error
}

type availabilityService struct {
	repo AvailabilityRepository
}

// NewAvailabilityService creates a new availability service.
func NewAvailabilityService(repo AvailabilityRepository) AvailabilityService {
	return &availabilityService{repo: repo}
}

// GetUserAvailability implements AvailabilityService.
func (s *availabilityService) GetUserAvailability(ctx context.Context, username, campaignID string, r DateRange) (SlotMap, bool, error) {
	if err := r.validateFetch(); err != nil {
		return nil, false, apperror.NewBadRequest(err.Error())
	}

	records, err := s.repo.ListForUser(ctx, username, campaignID, r.Start, r.End)
	if err != nil {
		slog.Warn("availability read degraded",
			slog.String("campaign_id", campaignID),
			slog.String("username", username),
			slog.String("start", timezone.FormatDate(r.Start)),
			slog.String("end", timezone.FormatDate(r.End)),
			slog.Any("error", err),
		)
		return SlotMap{}, true, nil
	}

	out := SlotMap{}
	for _, rec := range records {
		flatten(out, rec)
	}
	return out, false, nil
}

// GetAllAvailability implements AvailabilityService.
func (s *availabilityService) GetAllAvailability(ctx context.Context, campaignID string, r DateRange) (map[string]SlotMap, bool, error) {
	if err := r.validateFetch(); err != nil {
		return nil, false, apperror.NewBadRequest(err.Error())
	}

	records, err := s.repo.ListForCampaign(ctx, campaignID, r.Start, r.End)
	if err != nil {
		slog.Warn("availability read degraded",
			slog.String("campaign_id", campaignID),
			slog.String("start", timezone.FormatDate(r.Start)),
			slog.String("end", timezone.FormatDate(r.End)),
			slog.Any("error", err),
		)
		return map[string]SlotMap{}, true, nil
	}

	all := make(map[string]SlotMap)
	for _, rec := range records {
		m, ok := all[rec.Username]
		if !ok {
			m = SlotMap{}
			all[rec.Username] = m
		}
		flatten(m, rec)
	}
	return all, false, nil
}

// SetSlot implements AvailabilityService.
func (s *availabilityService) SetSlot(ctx context.Context, username, campaignID string, day time.Time, hour float64, available bool) error {
	if username == "" {
		return apperror.NewBadRequest("username is required")
	}
	if !timezone.ValidHour(hour) {
		return apperror.NewBadRequest(fmt.Sprintf("hour %v must be a whole or half hour in [0, 24)", hour))
	}

	day = timezone.Day(day)
	if err := s.repo.UpsertSlot(ctx, username, campaignID, day, timezone.HourKey(hour), available); err != nil {
		return apperror.NewUnavailable(fmt.Errorf("saving slot %s: %w", timezone.SlotKey(day, hour), err))
	}

	slog.Debug("availability slot saved",
		slog.String("campaign_id", campaignID),
		slog.String("username", username),
		slog.String("slot", timezone.SlotKey(day, hour)),
		slog.Bool("available", available),
	)
	return nil
}

// flatten copies a day record into a range-wide map. Hour keys that do not
// parse are dropped.
func flatten(dst SlotMap, rec Record) {
	for key, v := range rec.TimeSlots {
		h, err := timezone.ParseHourKey(key)
		if err != nil {
			continue
		}
		dst[timezone.SlotKey(rec.Date, h)] = v
	}
}

// Localize re-keys a canonical slot map into the viewer's local days and
// hours, keeping only entries that land inside window.
func Localize(canonical SlotMap, conv *timezone.Converter, window DateRange) SlotMap {
	out := make(SlotMap, len(canonical))
	for key, v := range canonical {
		day, h, err := timezone.ParseSlotKey(key)
		if err != nil {
			continue
		}
		localDay, localHour := conv.CanonicalToLocalSlot(day, h)
		if !window.Contains(localDay) {
			continue
		}
		out[timezone.SlotKey(localDay, localHour)] = v
	}
	return out
}
