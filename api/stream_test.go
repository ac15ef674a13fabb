package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"boardsync/domain"
	"boardsync/stream"
)

type flushRecorder struct{ *httptest.ResponseRecorder }

func (flushRecorder) Flush() {}

func waitForSubscribers(t *testing.T, hub *stream.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.Subscribers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStreamDeliversOrgScopedEvents(t *testing.T) {
	hub := stream.NewHub()
	cfg := testConfig(&stubService{})
	cfg.Events = hub
	e := newTestServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// EventSource clients cannot set headers, the token rides the query.
	req := httptest.NewRequest(http.MethodGet, "/api/events?token=a.b.c", nil).WithContext(ctx)
	rec := flushRecorder{httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		e.ServeHTTP(rec, req)
		close(done)
	}()

	waitForSubscribers(t, hub, 1)

	own, err := domain.TaskEvent("ev1", domain.OpCreated, "org-a", domain.Task{ID: "t1", Title: "write docs", ProjectID: "p1"}, 1)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	foreign, err := domain.TaskEvent("ev2", domain.OpCreated, "org-b", domain.Task{ID: "t-foreign", ProjectID: "p9"}, 2)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	hub.Publish(own)
	hub.Publish(foreign)

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after context cancellation")
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: task:created") {
		t.Fatalf("own-org event missing from stream: %q", body)
	}
	if !strings.Contains(body, `"t1"`) && !strings.Contains(body, "write docs") {
		t.Fatalf("event payload missing: %q", body)
	}
	if strings.Contains(body, "t-foreign") {
		t.Fatalf("foreign-org event leaked into stream: %q", body)
	}
	if hub.Subscribers() != 0 {
		t.Fatal("subscription must be closed when the connection ends")
	}
}

func TestStreamRejectsBadCredential(t *testing.T) {
	cfg := testConfig(&stubService{})
	cfg.Resolver = stubResolver{err: domain.ErrUnauthenticated}
	e := newTestServer(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/events?token=a.b.c", nil)
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStreamRequiresToken(t *testing.T) {
	e := newTestServer(testConfig(&stubService{}))

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestWriteEventFrames(t *testing.T) {
	created, err := domain.ProjectEvent("ev1", domain.OpCreated, domain.Project{ID: "p1", Name: "launch", OrganizationID: "org-a"}, 1)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	rec := httptest.NewRecorder()
	if err := writeEvent(rec, created); err != nil {
		t.Fatalf("write event: %v", err)
	}
	frame := rec.Body.String()
	if !strings.HasPrefix(frame, "event: project:created\ndata: ") {
		t.Fatalf("unexpected frame: %q", frame)
	}
	if !strings.HasSuffix(frame, "\n\n") {
		t.Fatalf("frame must end with a blank line: %q", frame)
	}

	deleted, err := domain.ProjectEvent("ev2", domain.OpDeleted, domain.Project{ID: "p1", OrganizationID: "org-a"}, 2)
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	rec = httptest.NewRecorder()
	if err := writeEvent(rec, deleted); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if got := rec.Body.String(); got != "event: project:deleted\ndata: \"p1\"\n\n" {
		t.Fatalf("delete frame must carry just the id, got %q", got)
	}
}
