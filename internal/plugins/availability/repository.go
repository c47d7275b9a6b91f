package availability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/timezone"
)

// AvailabilityRepository defines the data access contract for availability
// records. Every hour key crossing this boundary is canonical.
type AvailabilityRepository interface {
	// UpsertSlot merges one hour key into the (username, campaign, day)
	// record, creating the record if needed. Sibling hours are untouched.
	UpsertSlot(ctx context.Context, username, campaignID string, day time.Time, hourKey string, available bool) error

	// ListForUser returns one user's records with start <= date <= end.
	ListForUser(ctx context.Context, username, campaignID string, start, end time.Time) ([]Record, error)

	// ListForCampaign returns every user's records with start <= date <= end.
	ListForCampaign(ctx context.Context, campaignID string, start, end time.Time) ([]Record, error)
}

type availabilityRepository struct {
	db *sql.DB
}

// NewAvailabilityRepository creates a new repository backed by the given DB pool.
func NewAvailabilityRepository(db *sql.DB) AvailabilityRepository {
	return &availabilityRepository{db: db}
}

// upsertSlotSQL inserts a fresh one-key record or merges the key into the
// existing one with JSON_SET. The boolean literal is spliced in from a Go
// bool so MariaDB stores a JSON true/false rather than 1/0.
const upsertSlotSQL = `INSERT INTO availability (username, campaign_id, date, time_slots, updated_at)
	VALUES (?, ?, ?, JSON_OBJECT(?, %[1]s), ?)
	ON DUPLICATE KEY UPDATE
		time_slots = JSON_SET(COALESCE(time_slots, '{}'), ?, %[1]s),
		updated_at = VALUES(updated_at)`

// UpsertSlot implements the single-key merge write.
func (r *availabilityRepository) UpsertSlot(ctx context.Context, username, campaignID string, day time.Time, hourKey string, available bool) error {
	literal := "false"
	if available {
		literal = "true"
	}
	query := fmt.Sprintf(upsertSlotSQL, literal)
	path := `$."` + hourKey + `"`

	_, err := r.db.ExecContext(ctx, query,
		username, campaignID, timezone.FormatDate(day), hourKey, time.Now().UTC(),
		path,
	)
	if err != nil {
		return fmt.Errorf("upserting availability slot: %w", err)
	}
	return nil
}

// ListForUser returns one user's day records in the range.
func (r *availabilityRepository) ListForUser(ctx context.Context, username, campaignID string, start, end time.Time) ([]Record, error) {
	return r.list(ctx,
		`SELECT username, campaign_id, date, time_slots, updated_at
		 FROM availability
		 WHERE username = ? AND campaign_id = ? AND date BETWEEN ? AND ?
		 ORDER BY date`,
		username, campaignID, timezone.FormatDate(start), timezone.FormatDate(end))
}

// ListForCampaign returns all users' day records in the range.
func (r *availabilityRepository) ListForCampaign(ctx context.Context, campaignID string, start, end time.Time) ([]Record, error) {
	return r.list(ctx,
		`SELECT username, campaign_id, date, time_slots, updated_at
		 FROM availability
		 WHERE campaign_id = ? AND date BETWEEN ? AND ?
		 ORDER BY username, date`,
		campaignID, timezone.FormatDate(start), timezone.FormatDate(end))
}

func (r *availabilityRepository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing availability: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec   Record
			slots []byte
		)
		if err := rows.Scan(&rec.Username, &rec.CampaignID, &rec.Date, &slots, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning availability row: %w", err)
		}
		rec.Date = timezone.Day(rec.Date)
		if len(slots) == 0 {
			rec.TimeSlots = TimeSlots{}
		} else if err := json.Unmarshal(slots, &rec.TimeSlots); err != nil {
			rec.TimeSlots = TimeSlots{}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
