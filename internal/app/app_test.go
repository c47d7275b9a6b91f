package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/theprogrammerknownasat/dnd-scheduler/internal/apperror"
)

func runErrorHandler(t *testing.T, err error, accept string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	a := &App{Echo: e}
	req := httptest.NewRequest(http.MethodGet, "/campaigns/c1/calendar", nil)
	if accept != "" {
		req.Header.Set(echo.HeaderAccept, accept)
	}
	rec := httptest.NewRecorder()
	a.errorHandler(err, e.NewContext(req, rec))
	return rec
}

func TestErrorHandler_AppErrorJSON(t *testing.T) {
	rec := runErrorHandler(t, apperror.NewBadRequest("end date precedes start date"), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["type"] != "bad_request" || body["message"] != "end date precedes start date" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestErrorHandler_UnavailableJSON(t *testing.T) {
	rec := runErrorHandler(t, apperror.NewUnavailable(errors.New("dial tcp: refused")), "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "dial tcp") {
		t.Error("internal cause must not leak")
	}
}

func TestErrorHandler_PlainErrorIsGeneric(t *testing.T) {
	rec := runErrorHandler(t, errors.New("sql: table availability missing"), "")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "availability missing") {
		t.Errorf("expected generic 500, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorHandler_HTMLForBrowsers(t *testing.T) {
	rec := runErrorHandler(t, echo.NewHTTPError(http.StatusNotFound), "text/html")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML, got %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "404 Not Found") {
		t.Errorf("expected status title in page, got %s", rec.Body.String())
	}
}
