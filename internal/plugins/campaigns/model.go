// Package campaigns manages campaigns (the scheduling groups) and their
// membership. A campaign's members form the roster whose size is the
// denominator of every aggregated availability slot.
package campaigns

import (
	"context"
	"time"
)

// --- Role System ---

// Role represents a user's permission level within a campaign.
// Higher numeric values indicate more permissions; compare with >=.
type Role int

const (
	// RoleNone indicates the user has no membership in the campaign.
	// Used when a site admin accesses a campaign they haven't joined.
	RoleNone Role = 0

	// RolePlayer can mark availability and view the group calendar.
	RolePlayer Role = 1

	// RoleOwner can also schedule sessions and manage the roster.
	RoleOwner Role = 2
)

// RoleFromString converts a database role string to a Role constant.
func RoleFromString(s string) Role {
	switch s {
	case "owner":
		return RoleOwner
	case "player":
		return RolePlayer
	default:
		return RoleNone
	}
}

// String returns the database-safe string representation of a Role.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RolePlayer:
		return "player"
	default:
		return ""
	}
}

// IsValid returns true if this is a valid campaign membership role.
func (r Role) IsValid() bool {
	return r == RolePlayer || r == RoleOwner
}

// MarshalText renders the role as its string form in JSON.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// --- Domain Models ---

// Campaign is a named scheduling group.
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CampaignMember represents a user's membership in a campaign.
type CampaignMember struct {
	CampaignID string    `json:"campaign_id"`
	UserID     string    `json:"user_id"`
	Role       Role      `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`

	// Joined from users.
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// CampaignContext holds the resolved campaign and the requesting user's
// effective permissions. Injected into the Echo context by
// RequireCampaignAccess middleware.
type CampaignContext struct {
	Campaign    *Campaign
	MemberRole  Role // Actual membership role, or RoleNone if not a member.
	IsSiteAdmin bool
}

// CanManage reports whether the user may schedule sessions and edit the
// roster: campaign owners and site administrators.
func (cc *CampaignContext) CanManage() bool {
	return cc.MemberRole >= RoleOwner || cc.IsSiteAdmin
}

// --- Cross-Plugin Interfaces ---

// UserFinder finds users for membership operations without importing the
// auth plugin's types. Implemented by UserFinderAdapter.
type UserFinder interface {
	FindUserByUsername(ctx context.Context, username string) (*MemberUser, error)
}

// MemberUser is the minimal user info needed for membership operations.
type MemberUser struct {
	ID          string
	Username    string
	DisplayName string
}

// ActivityRecorder receives roster and campaign events for the audit log.
type ActivityRecorder interface {
	Record(ctx context.Context, campaignID, userID, action, targetID, targetName string, details map[string]any)
}

// --- Request DTOs ---

// CreateCampaignRequest is the JSON body for creating a campaign.
type CreateCampaignRequest struct {
	Name string `json:"name"`
}

// AddMemberRequest is the JSON body for adding a member to a campaign.
type AddMemberRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
