package pages

import (
	"context"
	"strings"
	"testing"
)

func TestErrorPage_EscapesMessage(t *testing.T) {
	var b strings.Builder
	if err := ErrorPage(404, `campaign <script>alert(1)</script> not found`).Render(context.Background(), &b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := b.String()
	if !strings.Contains(out, "404 Not Found") {
		t.Error("expected status title")
	}
	if strings.Contains(out, "<script>") {
		t.Error("message must be escaped")
	}
}
