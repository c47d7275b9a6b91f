package campaigns

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// mysqlDuplicateEntry is the MariaDB error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// CampaignRepository defines the data access contract for campaign operations.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type CampaignRepository interface {
	// Campaign CRUD
	CreateWithOwner(ctx context.Context, campaign *Campaign, owner *CampaignMember) error
	FindByID(ctx context.Context, id string) (*Campaign, error)
	ListByUser(ctx context.Context, userID string) ([]Campaign, error)
	ListAll(ctx context.Context) ([]Campaign, error)
	Delete(ctx context.Context, id string) error

	// Membership
	AddMember(ctx context.Context, member *CampaignMember) error
	RemoveMember(ctx context.Context, campaignID, userID string) error
	FindMember(ctx context.Context, campaignID, userID string) (*CampaignMember, error)
	ListMembers(ctx context.Context, campaignID string) ([]CampaignMember, error)
	CountOwners(ctx context.Context, campaignID string) (int, error)
}

// campaignRepository implements CampaignRepository with MariaDB queries.
type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new repository backed by the given DB pool.
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

// CreateWithOwner inserts the campaign and its first owner in one transaction.
func (r *campaignRepository) CreateWithOwner(ctx context.Context, campaign *Campaign, owner *CampaignMember) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO campaigns (id, name, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		campaign.ID, campaign.Name, campaign.CreatedBy, campaign.CreatedAt, campaign.UpdatedAt,
	); err != nil {
		return fmt.Errorf("inserting campaign: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO campaign_members (campaign_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		owner.CampaignID, owner.UserID, owner.Role.String(), owner.JoinedAt,
	); err != nil {
		return fmt.Errorf("inserting owner: %w", err)
	}

	return tx.Commit()
}

// FindByID retrieves a campaign by its UUID.
func (r *campaignRepository) FindByID(ctx context.Context, id string) (*Campaign, error) {
	c := &Campaign{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at FROM campaigns WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("campaign not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying campaign by id: %w", err)
	}
	return c, nil
}

// ListByUser returns the campaigns a user belongs to, by name.
func (r *campaignRepository) ListByUser(ctx context.Context, userID string) ([]Campaign, error) {
	query := `SELECT c.id, c.name, c.created_by, c.created_at, c.updated_at
	          FROM campaigns c
	          INNER JOIN campaign_members cm ON cm.campaign_id = c.id
	          WHERE cm.user_id = ?
	          ORDER BY c.name`
	return r.listCampaigns(ctx, query, userID)
}

// ListAll returns every campaign. Admin only.
func (r *campaignRepository) ListAll(ctx context.Context) ([]Campaign, error) {
	return r.listCampaigns(ctx,
		`SELECT id, name, created_by, created_at, updated_at FROM campaigns ORDER BY name`)
}

func (r *campaignRepository) listCampaigns(ctx context.Context, query string, args ...any) ([]Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning campaign row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes a campaign; members, availability and sessions cascade.
func (r *campaignRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting campaign: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("campaign not found")
	}
	return nil
}

// --- Membership ---

// AddMember inserts a membership row. A duplicate becomes a Conflict.
func (r *campaignRepository) AddMember(ctx context.Context, member *CampaignMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO campaign_members (campaign_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		member.CampaignID, member.UserID, member.Role.String(), member.JoinedAt,
	)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return apperror.NewConflict("user is already a member of this campaign")
	}
	if err != nil {
		return fmt.Errorf("adding member: %w", err)
	}
	return nil
}

// RemoveMember deletes a membership row.
func (r *campaignRepository) RemoveMember(ctx context.Context, campaignID, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM campaign_members WHERE campaign_id = ? AND user_id = ?`, campaignID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperror.NewNotFound("member not found")
	}
	return nil
}

// FindMember retrieves one user's membership.
func (r *campaignRepository) FindMember(ctx context.Context, campaignID, userID string) (*CampaignMember, error) {
	query := `SELECT cm.campaign_id, cm.user_id, cm.role, cm.joined_at, u.username, u.display_name
	          FROM campaign_members cm
	          INNER JOIN users u ON u.id = cm.user_id
	          WHERE cm.campaign_id = ? AND cm.user_id = ?`

	m := &CampaignMember{}
	var role string
	err := r.db.QueryRowContext(ctx, query, campaignID, userID).Scan(
		&m.CampaignID, &m.UserID, &role, &m.JoinedAt, &m.Username, &m.DisplayName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("member not found")
	}
	if err != nil {
		return nil, fmt.Errorf("querying member: %w", err)
	}
	m.Role = RoleFromString(role)
	return m, nil
}

// ListMembers returns all members of a campaign ordered by username.
func (r *campaignRepository) ListMembers(ctx context.Context, campaignID string) ([]CampaignMember, error) {
	query := `SELECT cm.campaign_id, cm.user_id, cm.role, cm.joined_at, u.username, u.display_name
	          FROM campaign_members cm
	          INNER JOIN users u ON u.id = cm.user_id
	          WHERE cm.campaign_id = ?
	          ORDER BY u.username`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []CampaignMember
	for rows.Next() {
		var m CampaignMember
		var role string
		if err := rows.Scan(&m.CampaignID, &m.UserID, &role, &m.JoinedAt, &m.Username, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		m.Role = RoleFromString(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// CountOwners returns how many owners a campaign has.
func (r *campaignRepository) CountOwners(ctx context.Context, campaignID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_members WHERE campaign_id = ? AND role = 'owner'`, campaignID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting owners: %w", err)
	}
	return n, nil
}
