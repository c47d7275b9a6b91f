// Package sessions manages scheduled play sessions for a campaign. Sessions
// are stored with a canonical-timezone day and half-hour start/end times and
// are what the group calendar marks as "scheduled".
package sessions

import (
	"context"
	"time"
)

// MaxTitleLength bounds a session title after sanitizing.
const MaxTitleLength = 200

// Audit action names; mirror the audit plugin's constants without importing it.
const (
	actionSessionCreated = "session.created"
	actionSessionDeleted = "session.deleted"
)

// ScheduledSession is one planned session. Date, StartTime and EndTime are in
// the canonical zone; 0 <= StartTime < EndTime <= 24.
type ScheduledSession struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"` // YYYY-MM-DD, canonical day.
	StartTime  float64   `json:"start_time"`
	EndTime    float64   `json:"end_time"`
	Notes      string    `json:"notes,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// Duration is the session length in hours.
func (s *ScheduledSession) Duration() float64 {
	return s.EndTime - s.StartTime
}

// Covers reports whether canonical hour h on canonical day date falls inside
// the session's half-open [StartTime, EndTime) window.
func (s *ScheduledSession) Covers(date string, h float64) bool {
	return s.Date == date && h >= s.StartTime && h < s.EndTime
}

// ActivityRecorder receives session events for the audit log.
type ActivityRecorder interface {
	Record(ctx context.Context, campaignID, userID, action, targetID, targetName string, details map[string]any)
}

// --- Request / response DTOs ---

// CreateSessionRequest is the JSON body for POST /campaigns/:id/sessions.
// All times are canonical.
type CreateSessionRequest struct {
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Notes     string  `json:"notes"`
}

// CreateSessionInput is the validated service-level input.
type CreateSessionInput struct {
	CampaignID string
	Title      string
	Date       string
	StartTime  float64
	EndTime    float64
	Notes      string
	CreatedBy  string
}

// LocalTimes places a session in the requesting viewer's zone.
type LocalTimes struct {
	Timezone  string  `json:"timezone"`
	Date      string  `json:"date"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"` // May exceed 24 when the session crosses local midnight.
}

// SessionView is a session as returned by the API.
type SessionView struct {
	ScheduledSession
	Local LocalTimes `json:"local"`
}
