package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/dispatch"
	"github.com/OFFIS-RIT/case-dispatcher/backend/internal/queue"
	mid "github.com/OFFIS-RIT/case-dispatcher/backend/internal/server/middleware"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/common"
	"github.com/OFFIS-RIT/case-dispatcher/backend/pkg/store/memory"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeRuns struct {
	runs []dispatch.Run
}

func (f *fakeRuns) List(ctx context.Context, limit int) ([]dispatch.Run, error) {
	return f.runs, nil
}

func (f *fakeRuns) Get(ctx context.Context, runID string) (*dispatch.Run, error) {
	for _, r := range f.runs {
		if r.RunID == runID {
			return &r, nil
		}
	}
	return nil, dispatch.ErrRunNotFound
}

type fakeQueue struct {
	keys []string
}

func (f *fakeQueue) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	return nil
}

func testApp() (*mid.App, *fakeQueue) {
	graph := memory.New()
	graph.Seed(common.Graph{Suspects: []common.Suspect{
		{ID: 1, Name: "Ravi", LinkStats: common.LinkStats{FirstDegreeLinks: 2, FirstDegreeCaseLinks: 1}},
		{ID: 2, Name: "Mohan"},
	}})
	q := &fakeQueue{}
	return &mid.App{
		Graph:   graph,
		Runs:    &fakeRuns{runs: []dispatch.Run{{RunID: "sGvgBXbBcVCjBIKCLS2Os", Trigger: "cron", StartedAt: time.Now(), Status: dispatch.StatusSucceeded}}},
		Queue:   q,
		APIKey:  "operator-key",
		ReadKey: "read-key",
	}, q
}

func do(t *testing.T, app *mid.App, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := New(app)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthIsPublic(t *testing.T) {
	app, _ := testApp()
	if rec := do(t, app, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	app, _ := testApp()
	if rec := do(t, app, http.MethodGet, "/api/suspects", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := do(t, app, http.MethodGet, "/api/suspects", "wrong", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetSuspect(t *testing.T) {
	app, _ := testApp()
	rec := do(t, app, http.MethodGet, "/api/suspects/1", "read-key", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var s common.Suspect
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("expected json body, got %v", err)
	}
	if s.Name != "Ravi" || s.LinkStats.FirstDegreeLinks != 2 {
		t.Fatalf("unexpected suspect %+v", s)
	}

	if rec := do(t, app, http.MethodGet, "/api/suspects/99", "read-key", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, app, http.MethodGet, "/api/suspects/abc", "read-key", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListSuspectsFiltersByLinks(t *testing.T) {
	app, _ := testApp()
	rec := do(t, app, http.MethodGet, "/api/suspects?min_links=1", "read-key", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []common.Suspect
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("expected json body, got %v", err)
	}
	if len(out) != 1 || out[0].ID != 1 {
		t.Fatalf("expected only suspect 1, got %+v", out)
	}
}

func TestCreateRunNeedsOperatorKey(t *testing.T) {
	app, q := testApp()
	if rec := do(t, app, http.MethodPost, "/api/runs", "read-key", `{}`); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec := do(t, app, http.MethodPost, "/api/runs", "operator-key", `{"dry_run":true}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var req queue.RunRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &req); err != nil {
		t.Fatalf("expected json body, got %v", err)
	}
	if !req.DryRun || req.Trigger != "api" || req.RunID == "" {
		t.Fatalf("unexpected run request %+v", req)
	}
	if len(q.keys) != 1 || q.keys[0] != queue.DispatchQueue {
		t.Fatalf("expected one message on %s, got %v", queue.DispatchQueue, q.keys)
	}
}

func TestGetRun(t *testing.T) {
	app, _ := testApp()
	if rec := do(t, app, http.MethodGet, "/api/runs/sGvgBXbBcVCjBIKCLS2Os", "read-key", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(t, app, http.MethodGet, "/api/runs/tHwhCYcCdWDkCJLDMT3Pt", "read-key", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := do(t, app, http.MethodGet, "/api/runs/bad", "read-key", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := do(t, app, http.MethodGet, "/api/runs?limit=500", "read-key", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
