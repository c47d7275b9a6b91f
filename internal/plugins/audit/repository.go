package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRepository defines the data access contract for audit log operations.
type AuditRepository interface {
	// Log inserts a new audit entry.
	Log(ctx context.Context, entry *AuditEntry) error

	// ListByCampaign returns a page of entries, newest first, plus the total.
	ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]AuditEntry, int, error)
}

// auditRepository implements AuditRepository with MariaDB queries.
type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new repository backed by the given DB pool.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log inserts a new audit entry. Nil details are stored as SQL NULL.
func (r *auditRepository) Log(ctx context.Context, entry *AuditEntry) error {
	query := `INSERT INTO audit_log (campaign_id, user_id, action, target_id, target_name, details, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	var detailsJSON []byte
	if entry.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshaling audit details: %w", err)
		}
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		entry.CampaignID, entry.UserID, entry.Action,
		nullable(entry.TargetID), nullable(entry.TargetName),
		detailsJSON, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListByCampaign returns audit entries for a campaign ordered by most recent
// first, with the actor's username joined in.
func (r *auditRepository) ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]AuditEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_log WHERE campaign_id = ?`, campaignID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting audit entries: %w", err)
	}

	query := `SELECT a.id, a.campaign_id, a.user_id, a.action,
	                 COALESCE(a.target_id, ''), COALESCE(a.target_name, ''),
	                 a.details, a.created_at,
	                 COALESCE(u.username, '')
	          FROM audit_log a
	          LEFT JOIN users u ON u.id = a.user_id
	          WHERE a.campaign_id = ?
	          ORDER BY a.created_at DESC, a.id DESC
	          LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, campaignID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var detailsJSON sql.NullString
		if err := rows.Scan(
			&e.ID, &e.CampaignID, &e.UserID, &e.Action,
			&e.TargetID, &e.TargetName,
			&detailsJSON, &e.CreatedAt, &e.Username,
		); err != nil {
			return nil, 0, fmt.Errorf("scanning audit entry: %w", err)
		}
		if detailsJSON.Valid && detailsJSON.String != "" {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				// Non-fatal: keep the feed readable.
				e.Details = map[string]any{"_parse_error": "invalid JSON"}
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating audit rows: %w", err)
	}
	return entries, total, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
