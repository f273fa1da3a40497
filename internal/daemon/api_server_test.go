package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fastchannels/internal/api"
	"fastchannels/internal/journal"
	"fastchannels/internal/pipeline"
	"fastchannels/internal/services"
	"fastchannels/internal/testsupport"
)

type fakeDispatcher struct {
	result pipeline.Result
	err    error
	bodies []string
	ctxErr error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, raw []byte) (pipeline.Result, error) {
	f.bodies = append(f.bodies, string(raw))
	f.ctxErr = ctx.Err()
	return f.result, f.err
}

func (f *fakeDispatcher) Disabled() map[string]string {
	return map[string]string{"notify": "no notifier configured"}
}

func newTestDaemon(t *testing.T, disp *fakeDispatcher, token string) (*Daemon, *journal.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = token
	store := testsupport.MustOpenJournal(t, cfg)
	d, err := New(cfg, Options{Dispatcher: disp, Journal: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, store
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, http.StatusOK},
		{"transient", services.Wrap(services.ErrTransient, "packaging", "ensure", "", nil), http.StatusServiceUnavailable},
		{"timeout", services.Wrap(services.ErrTimeout, "packaging", "ensure", "", nil), http.StatusServiceUnavailable},
		{"validation", services.Wrap(services.ErrValidation, "pipeline", "decode", "", nil), http.StatusUnprocessableEntity},
		{"configuration", services.Wrap(services.ErrConfiguration, "vodsource", "ensure", "", nil), http.StatusInternalServerError},
		{"not found", services.Wrap(services.ErrNotFound, "vodsource", "schedule", "", nil), http.StatusInternalServerError},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Fatalf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandleEvents(t *testing.T) {
	disp := &fakeDispatcher{
		result: pipeline.Result{RequestID: "r1", Stage: "transcode", Status: journal.StatusFailed, Class: services.ClassTransient},
		err:    services.Wrap(services.ErrTransient, "transcode", "submit", "", nil),
	}
	d, _ := newTestDaemon(t, disp, "")

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"id":"e1"}`))
	w := httptest.NewRecorder()
	d.api.handleEvents(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After on transient failure")
	}
	var got pipeline.Result
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RequestID != "r1" || got.Class != services.ClassTransient {
		t.Fatalf("unexpected result %+v", got)
	}
	if len(disp.bodies) != 1 || disp.bodies[0] != `{"id":"e1"}` {
		t.Fatalf("dispatcher saw %v", disp.bodies)
	}
}

func TestHandleEventsRejects(t *testing.T) {
	disp := &fakeDispatcher{}
	d, _ := newTestDaemon(t, disp, "")

	w := httptest.NewRecorder()
	d.api.handleEvents(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET: expected 405, got %d", w.Code)
	}

	big := strings.NewReader(`{"pad":"` + strings.Repeat("x", maxEventBytes) + `"}`)
	w = httptest.NewRecorder()
	d.api.handleEvents(w, httptest.NewRequest(http.MethodPost, "/events", big))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized: expected 413, got %d", w.Code)
	}
	if len(disp.bodies) != 0 {
		t.Fatal("rejected requests must not reach the dispatcher")
	}
}

func TestHandleHistoryFilters(t *testing.T) {
	d, store := newTestDaemon(t, &fakeDispatcher{}, "")
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, row := range []journal.Delivery{
		{RequestID: "a", Stage: "transcode", Status: journal.StatusOK},
		{RequestID: "b", Stage: "packaging", Status: journal.StatusFailed},
		{RequestID: "c", Stage: "packaging", Status: journal.StatusOK},
	} {
		row.Source = "aws.test"
		row.ReceivedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := store.Record(ctx, row); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	w := httptest.NewRecorder()
	d.api.handleHistory(w, httptest.NewRequest(http.MethodGet, "/api/history?stage=packaging&limit=5", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp api.HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Deliveries) != 2 || resp.Deliveries[0].RequestID != "c" || resp.Deliveries[1].RequestID != "b" {
		t.Fatalf("unexpected deliveries %+v", resp.Deliveries)
	}

	w = httptest.NewRecorder()
	d.api.handleHistory(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=zero", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", w.Code)
	}
}

func TestHandleStatusReportsDisabledStages(t *testing.T) {
	d, _ := newTestDaemon(t, &fakeDispatcher{}, "")
	w := httptest.NewRecorder()
	d.api.handleStatus(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status api.DaemonStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Running {
		t.Fatal("daemon was never started")
	}
	if status.DisabledStages["notify"] == "" {
		t.Fatalf("expected notify listed as disabled, got %v", status.DisabledStages)
	}
	if !strings.HasSuffix(status.JournalPath, journal.FileName) {
		t.Fatalf("unexpected journal path %q", status.JournalPath)
	}
}

func TestAuthMiddleware(t *testing.T) {
	handler := authMiddleware("s3cret", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tt.want {
				t.Fatalf("got %d, want %d", w.Code, tt.want)
			}
		})
	}

	open := authMiddleware("", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	w := httptest.NewRecorder()
	open(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("empty token should pass through, got %d", w.Code)
	}
}
