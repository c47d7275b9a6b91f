package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/sanitize"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// icsProductID identifies this application in exported calendars.
const icsProductID = "-//dnd-scheduler//Scheduled Sessions//EN"

// SessionService defines the business logic contract for sessions.
type SessionService interface {
	Create(ctx context.Context, input CreateSessionInput) (*ScheduledSession, error)
	Get(ctx context.Context, campaignID, id string) (*ScheduledSession, error)
	List(ctx context.Context, campaignID string) ([]ScheduledSession, error)

	// ListInRange returns sessions on canonical days start..end inclusive.
	ListInRange(ctx context.Context, campaignID string, start, end time.Time) ([]ScheduledSession, error)

	Delete(ctx context.Context, actorID, campaignID, id string) error

	// ExportICS renders every session of the campaign as an iCalendar feed.
	ExportICS(ctx context.Context, campaignID, calendarName string) (string, error)
}

// sessionService implements SessionService.
type sessionService struct {
	repo     SessionRepository
	canon    *timezone.Canonical
	activity ActivityRecorder // May be nil.
	now      func() time.Time
}

// NewSessionService creates a new session service. activity may be nil.
func NewSessionService(repo SessionRepository, canon *timezone.Canonical, activity ActivityRecorder) SessionService {
	return &sessionService{repo: repo, canon: canon, activity: activity, now: time.Now}
}

// Create validates input and stores a new session.
func (s *sessionService) Create(ctx context.Context, input CreateSessionInput) (*ScheduledSession, error) {
	session, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	slog.Info("session scheduled",
		slog.String("campaign_id", session.CampaignID),
		slog.String("session_id", session.ID),
		slog.String("date", session.Date),
		slog.Float64("start", session.StartTime),
		slog.Float64("end", session.EndTime),
	)
	s.record(ctx, session.CampaignID, input.CreatedBy, actionSessionCreated, session.ID, session.Title,
		map[string]any{"date": session.Date, "start_time": session.StartTime, "end_time": session.EndTime})
	return session, nil
}

func (s *sessionService) validate(input CreateSessionInput) (*ScheduledSession, error) {
	title := sanitize.PlainText(input.Title)
	if title == "" {
		return nil, apperror.NewValidation("session title is required")
	}
	if len([]rune(title)) > MaxTitleLength {
		return nil, apperror.NewValidation(fmt.Sprintf("session title must be at most %d characters", MaxTitleLength))
	}

	day, err := timezone.ParseDate(input.Date)
	if err != nil {
		return nil, apperror.NewValidation(err.Error())
	}

	if !timezone.IsHalfHour(input.StartTime) || !timezone.IsHalfHour(input.EndTime) {
		return nil, apperror.NewValidation("start and end times must be whole or half hours")
	}
	if input.StartTime < 0 || input.EndTime > 24 {
		return nil, apperror.NewValidation("session times must be within 0 and 24")
	}
	if input.StartTime >= input.EndTime {
		return nil, apperror.NewValidation("session must end after it starts")
	}

	return &ScheduledSession{
		ID:         uuid.NewString(),
		CampaignID: input.CampaignID,
		Title:      title,
		Date:       timezone.FormatDate(day),
		StartTime:  input.StartTime,
		EndTime:    input.EndTime,
		Notes:      sanitize.Notes(input.Notes),
		CreatedBy:  input.CreatedBy,
		CreatedAt:  s.now().UTC(),
	}, nil
}

// Get retrieves a session, hiding sessions of other campaigns.
func (s *sessionService) Get(ctx context.Context, campaignID, id string) (*ScheduledSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("loading session", err)
	}
	if session.CampaignID != campaignID {
		return nil, apperror.NewNotFound("session not found")
	}
	return session, nil
}

// List returns all sessions of a campaign.
func (s *sessionService) List(ctx context.Context, campaignID string) ([]ScheduledSession, error) {
	out, err := s.repo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing sessions: %w", err))
	}
	if out == nil {
		out = []ScheduledSession{}
	}
	return out, nil
}

// ListInRange implements SessionService.
func (s *sessionService) ListInRange(ctx context.Context, campaignID string, start, end time.Time) ([]ScheduledSession, error) {
	if end.Before(start) {
		return nil, apperror.NewBadRequest("range end is before start")
	}
	out, err := s.repo.ListInRange(ctx, campaignID, timezone.Day(start), timezone.Day(end))
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing sessions in range: %w", err))
	}
	if out == nil {
		out = []ScheduledSession{}
	}
	return out, nil
}

// Delete removes a session after checking it belongs to the campaign.
func (s *sessionService) Delete(ctx context.Context, actorID, campaignID, id string) error {
	session, err := s.Get(ctx, campaignID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapRepoErr("deleting session", err)
	}

	slog.Info("session deleted",
		slog.String("campaign_id", campaignID),
		slog.String("session_id", id),
	)
	s.record(ctx, campaignID, actorID, actionSessionDeleted, id, session.Title,
		map[string]any{"date": session.Date})
	return nil
}

// ExportICS implements SessionService. Event times are written as UTC
// instants computed from the canonical day and hours.
func (s *sessionService) ExportICS(ctx context.Context, campaignID, calendarName string) (string, error) {
	sessions, err := s.List(ctx, campaignID)
	if err != nil {
		return "", err
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetName(calendarName)
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone(s.canon.Name)

	stamp := s.now().UTC()
	for _, session := range sessions {
		day, err := timezone.ParseDate(session.Date)
		if err != nil {
			continue
		}
		event := cal.AddEvent(session.ID + "@dnd-scheduler")
		event.SetDtStampTime(stamp)
		event.SetCreatedTime(session.CreatedAt)
		event.SetStartAt(s.canon.At(day, session.StartTime))
		event.SetEndAt(s.canon.At(day, session.EndTime))
		event.SetSummary(session.Title)
		if session.Notes != "" {
			event.SetDescription(sanitize.PlainText(session.Notes))
		}
	}

	return cal.Serialize(), nil
}

func (s *sessionService) record(ctx context.Context, campaignID, userID, action, targetID, targetName string, details map[string]any) {
	if s.activity == nil {
		return
	}
	s.activity.Record(ctx, campaignID, userID, action, targetID, targetName, details)
}

// wrapRepoErr passes AppErrors through and hides everything else.
func wrapRepoErr(op string, err error) error {
	if _, ok := err.(*apperror.AppError); ok {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", op, err))
}
