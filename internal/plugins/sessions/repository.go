package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// SessionRepository defines the data access contract for scheduled sessions.
type SessionRepository interface {
	Create(ctx context.Context, s *ScheduledSession) error
	FindByID(ctx context.Context, id string) (*ScheduledSession, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]ScheduledSession, error)
	ListInRange(ctx context.Context, campaignID string, start, end time.Time) ([]ScheduledSession, error)
	Delete(ctx context.Context, id string) error
}

// sessionRepository implements SessionRepository with MariaDB queries.
type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

const sessionColumns = `id, campaign_id, title, date, start_time, end_time, notes, created_by, created_at`

// Create inserts a new session.
func (r *sessionRepository) Create(ctx context.Context, s *ScheduledSession) error {
	query := `INSERT INTO scheduled_sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.CampaignID, s.Title, s.Date, s.StartTime, s.EndTime,
		nullString(s.Notes), s.CreatedBy, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// FindByID retrieves a session by its UUID.
func (r *sessionRepository) FindByID(ctx context.Context, id string) (*ScheduledSession, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM scheduled_sessions WHERE id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying session by id: %w", err)
	}
	return s, nil
}

// ListByCampaign returns every session of a campaign in date order.
func (r *sessionRepository) ListByCampaign(ctx context.Context, campaignID string) ([]ScheduledSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM scheduled_sessions
		 WHERE campaign_id = ?
		 ORDER BY date, start_time, created_at`,
		campaignID)
}

// ListInRange returns sessions whose canonical day is within [start, end].
func (r *sessionRepository) ListInRange(ctx context.Context, campaignID string, start, end time.Time) ([]ScheduledSession, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM scheduled_sessions
		 WHERE campaign_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date, start_time, created_at`,
		campaignID, timezone.FormatDate(start), timezone.FormatDate(end))
}

// Delete removes a session.
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("session not found")
	}
	return nil
}

func (r *sessionRepository) list(ctx context.Context, query string, args ...any) ([]ScheduledSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []ScheduledSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*ScheduledSession, error) {
	var (
		s     ScheduledSession
		date  time.Time
		notes sql.NullString
	)
	if err := row.Scan(&s.ID, &s.CampaignID, &s.Title, &date, &s.StartTime, &s.EndTime,
		&notes, &s.CreatedBy, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Date = timezone.FormatDate(date)
	s.Notes = notes.String
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
