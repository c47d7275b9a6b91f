package campaigns

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
	"github.com/theprogrammerknownasat/dnd-scheduler/internal/sanitize"
)

// Audit action names; mirror the audit plugin's constants without importing it.
const (
	actionCampaignCreated = "campaign.created"
	actionMemberJoined    = "member.joined"
	actionMemberLeft      = "member.left"
)

// CampaignService handles business logic for campaigns and their rosters.
type CampaignService interface {
	// Campaign CRUD
	Create(ctx context.Context, userID, name string) (*Campaign, error)
	GetByID(ctx context.Context, id string) (*Campaign, error)
	List(ctx context.Context, userID string) ([]Campaign, error)
	ListAll(ctx context.Context) ([]Campaign, error)
	Delete(ctx context.Context, campaignID string) error

	// Membership
	GetMember(ctx context.Context, campaignID, userID string) (*CampaignMember, error)
	AddMember(ctx context.Context, actorID, campaignID, username string, role Role) (*CampaignMember, error)
	RemoveMember(ctx context.Context, actorID, campaignID, userID string) error
	ListMembers(ctx context.Context, campaignID string) ([]CampaignMember, error)

	// Roster returns the sorted member usernames of a campaign: the set
	// aggregation counts as "total".
	Roster(ctx context.Context, campaignID string) ([]string, error)
}

// campaignService implements CampaignService.
type campaignService struct {
	repo     CampaignRepository
	users    UserFinder
	activity ActivityRecorder // May be nil.
}

// NewCampaignService creates a new campaign service. activity may be nil.
func NewCampaignService(repo CampaignRepository, users UserFinder, activity ActivityRecorder) CampaignService {
	return &campaignService{repo: repo, users: users, activity: activity}
}

// --- Campaign CRUD ---

// Create creates a new campaign with the creator as its owner.
func (s *campaignService) Create(ctx context.Context, userID, name string) (*Campaign, error) {
	name = sanitize.PlainText(name)
	if name == "" {
		return nil, apperror.NewBadRequest("campaign name is required")
	}
	if len(name) > 200 {
		return nil, apperror.NewBadRequest("campaign name must be at most 200 characters")
	}

	now := time.Now().UTC()
	campaign := &Campaign{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &CampaignMember{CampaignID: campaign.ID, UserID: userID, Role: RoleOwner, JoinedAt: now}

	if err := s.repo.CreateWithOwner(ctx, campaign, owner); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating campaign: %w", err))
	}

	slog.Info("campaign created",
		slog.String("campaign_id", campaign.ID),
		slog.String("user_id", userID),
	)
	s.record(ctx, campaign.ID, userID, actionCampaignCreated, campaign.ID, campaign.Name, nil)
	return campaign, nil
}

// GetByID retrieves a campaign by ID.
func (s *campaignService) GetByID(ctx context.Context, id string) (*Campaign, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("loading campaign", err)
	}
	return c, nil
}

// List returns campaigns the user is a member of.
func (s *campaignService) List(ctx context.Context, userID string) ([]Campaign, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing campaigns: %w", err))
	}
	return nonNil(out), nil
}

// ListAll returns all campaigns. Admin only.
func (s *campaignService) ListAll(ctx context.Context) ([]Campaign, error) {
	out, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing campaigns: %w", err))
	}
	return nonNil(out), nil
}

// Delete removes a campaign and all its data (via FK CASCADE).
func (s *campaignService) Delete(ctx context.Context, campaignID string) error {
	if err := s.repo.Delete(ctx, campaignID); err != nil {
		return wrapRepoErr("deleting campaign", err)
	}
	slog.Info("campaign deleted", slog.String("campaign_id", campaignID))
	return nil
}

// --- Membership ---

// GetMember retrieves a user's membership in a campaign.
func (s *campaignService) GetMember(ctx context.Context, campaignID, userID string) (*CampaignMember, error) {
	return s.repo.FindMember(ctx, campaignID, userID)
}

// AddMember adds a user to the roster by username.
func (s *campaignService) AddMember(ctx context.Context, actorID, campaignID, username string, role Role) (*CampaignMember, error) {
	if !role.IsValid() {
		return nil, apperror.NewBadRequest("invalid role")
	}

	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, apperror.NewBadRequest("no user found with that username")
	}

	member := &CampaignMember{
		CampaignID:  campaignID,
		UserID:      user.ID,
		Role:        role,
		JoinedAt:    time.Now().UTC(),
		Username:    user.Username,
		DisplayName: user.DisplayName,
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, wrapRepoErr("adding member", err)
	}

	slog.Info("member added to campaign",
		slog.String("campaign_id", campaignID),
		slog.String("user_id", user.ID),
		slog.String("role", role.String()),
	)
	s.record(ctx, campaignID, actorID, actionMemberJoined, user.ID, user.Username,
		map[string]any{"role": role.String()})
	return member, nil
}

// RemoveMember removes a user from the roster. The last owner stays.
func (s *campaignService) RemoveMember(ctx context.Context, actorID, campaignID, userID string) error {
	member, err := s.repo.FindMember(ctx, campaignID, userID)
	if err != nil {
		return wrapRepoErr("loading member", err)
	}

	if member.Role == RoleOwner {
		owners, err := s.repo.CountOwners(ctx, campaignID)
		if err != nil {
			return apperror.NewInternal(fmt.Errorf("counting owners: %w", err))
		}
		if owners <= 1 {
			return apperror.NewBadRequest("cannot remove the last owner of a campaign")
		}
	}

	if err := s.repo.RemoveMember(ctx, campaignID, userID); err != nil {
		return wrapRepoErr("removing member", err)
	}

	slog.Info("member removed from campaign",
		slog.String("campaign_id", campaignID),
		slog.String("user_id", userID),
	)
	s.record(ctx, campaignID, actorID, actionMemberLeft, userID, member.Username, nil)
	return nil
}

// ListMembers returns all members of a campaign.
func (s *campaignService) ListMembers(ctx context.Context, campaignID string) ([]CampaignMember, error) {
	members, err := s.repo.ListMembers(ctx, campaignID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing members: %w", err))
	}
	return nonNil(members), nil
}

// Roster returns the campaign's member usernames, sorted and deduplicated.
func (s *campaignService) Roster(ctx context.Context, campaignID string) ([]string, error) {
	members, err := s.repo.ListMembers(ctx, campaignID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("loading roster: %w", err))
	}
	seen := make(map[string]bool, len(members))
	roster := make([]string, 0, len(members))
	for _, m := range members {
		if m.Username == "" || seen[m.Username] {
			continue
		}
		seen[m.Username] = true
		roster = append(roster, m.Username)
	}
	sort.Strings(roster)
	return roster, nil
}

func (s *campaignService) record(ctx context.Context, campaignID, userID, action, targetID, targetName string, details map[string]any) {
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

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
