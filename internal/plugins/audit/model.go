// Package audit records scheduling and membership mutations per campaign:
// sessions being scheduled or cancelled and players joining or leaving. The
// activity feed gives campaign owners a view of who changed what and when.
//
// The plugin only observes; an audit write failure never blocks the
// operation that triggered it.
package audit

import "time"

// --- Action Constants ---
// Each action string follows the pattern "resource.verb".

const (
	// ActionCampaignCreated is logged when a campaign is created.
	ActionCampaignCreated = "campaign.created"

	// ActionMemberJoined is logged when a user is added to a campaign roster.
	ActionMemberJoined = "member.joined"

	// ActionMemberLeft is logged when a user is removed from a campaign roster.
	ActionMemberLeft = "member.left"

	// ActionSessionCreated is logged when a session is scheduled.
	ActionSessionCreated = "session.created"

	// ActionSessionDeleted is logged when a scheduled session is removed.
	ActionSessionDeleted = "session.deleted"
)

// AuditEntry is a single recorded action. TargetID/TargetName identify what
// was acted on (a session, a member); Details holds action-specific data.
type AuditEntry struct {
	ID         int64          `json:"id"`
	CampaignID string         `json:"campaign_id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	TargetID   string         `json:"target_id,omitempty"`
	TargetName string         `json:"target_name,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`

	// Joined from users at query time.
	Username string `json:"username,omitempty"`
}

// ActivityPage is the JSON shape of GET /campaigns/:id/activity.
type ActivityPage struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
	Page    int          `json:"page"`
	PerPage int          `json:"per_page"`
}
