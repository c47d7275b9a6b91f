package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

// perPage is the number of audit entries shown per page in the activity feed.
const perPage = 50

// AuditService handles business logic for the audit log.
type AuditService interface {
	// Log validates and records an entry.
	Log(ctx context.Context, entry *AuditEntry) error

	// Record is the fire-and-forget form of Log used by other plugins.
	// Failures are logged, never returned.
	Record(ctx context.Context, campaignID, userID, action, targetID, targetName string, details map[string]any)

	// GetCampaignActivity returns a page of the activity feed.
	GetCampaignActivity(ctx context.Context, campaignID string, page int) (*ActivityPage, error)
}

// auditService implements AuditService.
type auditService struct {
	repo AuditRepository
}

// NewAuditService creates a new audit service with the given repository.
func NewAuditService(repo AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// Log validates and persists an audit entry.
func (s *auditService) Log(ctx context.Context, entry *AuditEntry) error {
	if entry.CampaignID == "" {
		return apperror.NewBadRequest("campaign ID is required for audit entry")
	}
	if entry.UserID == "" {
		return apperror.NewBadRequest("user ID is required for audit entry")
	}
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for audit entry")
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write audit log entry",
			slog.String("campaign_id", entry.CampaignID),
			slog.String("action", entry.Action),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing audit entry: %w", err))
	}
	return nil
}

// Record logs an entry and swallows the error.
func (s *auditService) Record(ctx context.Context, campaignID, userID, action, targetID, targetName string, details map[string]any) {
	_ = s.Log(ctx, &AuditEntry{
		CampaignID: campaignID,
		UserID:     userID,
		Action:     action,
		TargetID:   targetID,
		TargetName: targetName,
		Details:    details,
	})
}

// GetCampaignActivity returns the paginated activity feed for a campaign.
// Pages are 1-indexed. Invalid page numbers are clamped to 1.
func (s *auditService) GetCampaignActivity(ctx context.Context, campaignID string, page int) (*ActivityPage, error) {
	if page < 1 {
		page = 1
	}

	entries, total, err := s.repo.ListByCampaign(ctx, campaignID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing campaign activity: %w", err))
	}
	if entries == nil {
		entries = []AuditEntry{}
	}
	return &ActivityPage{Entries: entries, Total: total, Page: page, PerPage: perPage}, nil
}
