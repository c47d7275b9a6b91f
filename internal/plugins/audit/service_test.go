package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

type mockAuditRepo struct {
	logFn            func(ctx context.Context, entry *AuditEntry) error
	listByCampaignFn func(ctx context.Context, campaignID string, limit, offset int) ([]AuditEntry, int, error)
}

func (m *mockAuditRepo) Log(ctx context.Context, entry *AuditEntry) error {
	if m.logFn != nil {
		return m.logFn(ctx, entry)
	}
	return nil
}

func (m *mockAuditRepo) ListByCampaign(ctx context.Context, campaignID string, limit, offset int) ([]AuditEntry, int, error) {
	if m.listByCampaignFn != nil {
		return m.listByCampaignFn(ctx, campaignID, limit, offset)
	}
	return nil, 0, nil
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d", expectedCode, appErr.Code)
	}
}

func TestLog_RequiresFields(t *testing.T) {
	svc := NewAuditService(&mockAuditRepo{})
	err := svc.Log(context.Background(), &AuditEntry{UserID: "u", Action: ActionSessionCreated})
	assertAppError(t, err, 400)
	err = svc.Log(context.Background(), &AuditEntry{CampaignID: "c", Action: ActionSessionCreated})
	assertAppError(t, err, 400)
	err = svc.Log(context.Background(), &AuditEntry{CampaignID: "c", UserID: "u"})
	assertAppError(t, err, 400)
}

func TestRecord_SwallowsFailures(t *testing.T) {
	called := false
	svc := NewAuditService(&mockAuditRepo{
		logFn: func(ctx context.Context, entry *AuditEntry) error {
			called = true
			if entry.TargetName != "Session Zero" || entry.Details["date"] != "2024-06-10" {
				t.Errorf("unexpected entry %+v", entry)
			}
			return errors.New("db down")
		},
	})
	svc.Record(context.Background(), "c", "u", ActionSessionCreated, "s-1", "Session Zero",
		map[string]any{"date": "2024-06-10"})
	if !called {
		t.Error("expected repository to be called")
	}
}

func TestGetCampaignActivity_Paginates(t *testing.T) {
	var gotOffset int
	svc := NewAuditService(&mockAuditRepo{
		listByCampaignFn: func(ctx context.Context, campaignID string, limit, offset int) ([]AuditEntry, int, error) {
			gotOffset = offset
			return nil, 120, nil
		},
	})

	page, err := svc.GetCampaignActivity(context.Background(), "c", 3)
	if err != nil {
		t.Fatal(err)
	}
	if gotOffset != 100 {
		t.Errorf("offset = %d, want 100", gotOffset)
	}
	if page.Entries == nil || page.Total != 120 || page.Page != 3 {
		t.Errorf("unexpected page %+v", page)
	}

	if _, err := svc.GetCampaignActivity(context.Background(), "c", -4); err != nil {
		t.Fatal(err)
	}
	if gotOffset != 0 {
		t.Errorf("negative page should clamp to offset 0, got %d", gotOffset)
	}
}
