package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-relay/internal/audit"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-relay/internal/relay"
	"github.com/nerrad567/gray-logic-relay/internal/testutil"
	"github.com/nerrad567/gray-logic-relay/migrations"
)

// testDeps returns dependencies backed by a migrated SQLite file.
func testDeps(t *testing.T) (Deps, *audit.SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "relay.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	repo := audit.NewSQLiteRepository(db.DB)

	return Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		Logger:   logging.Discard(),
		Counters: relay.NewCounters(),
		Events:   repo,
		DB:       db,
		Version:  "test",
	}, repo
}

func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v (body %q)", err, rec.Body.String())
	}
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error { return errors.New("unreachable") }

type failingRepo struct{}

func (failingRepo) Create(context.Context, *audit.Entry) error { return errors.New("disk full") }

func (failingRepo) List(context.Context, audit.Filter) (*audit.ListResult, error) {
	return nil, errors.New("disk full")
}

func TestNew_RequiresDependencies(t *testing.T) {
	deps, _ := testDeps(t)

	noLogger := deps
	noLogger.Logger = nil
	if _, err := New(noLogger); err == nil {
		t.Error("New() without logger should fail")
	}

	noCounters := deps
	noCounters.Counters = nil
	if _, err := New(noCounters); err == nil {
		t.Error("New() without counters should fail")
	}
}

func TestHandleHealth(t *testing.T) {
	deps, _ := testDeps(t)
	rec := get(t, testServer(t, deps).Handler(), "/api/v1/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}

	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Status != "ok" || resp.Version != "test" {
		t.Errorf("health = %+v, want status ok version test", resp)
	}
	if resp.Checks["database"] != "ok" {
		t.Errorf("database check = %q, want ok", resp.Checks["database"])
	}
	if resp.Checks["influxdb"] != "disabled" {
		t.Errorf("influxdb check = %q, want disabled", resp.Checks["influxdb"])
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	deps, _ := testDeps(t)
	deps.InfluxDB = failingCheck{}
	rec := get(t, testServer(t, deps).Handler(), "/api/v1/health")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp HealthResponse
	decode(t, rec, &resp)
	if resp.Status != "degraded" || resp.Checks["influxdb"] != "error" {
		t.Errorf("health = %+v, want degraded with influxdb error", resp)
	}
}

func TestHandleMetrics(t *testing.T) {
	deps, _ := testDeps(t)
	counters := relay.NewCounters()
	counters.Record(relay.Event{Action: "publish", Outcome: "ok", At: time.Now()})
	counters.Record(relay.Event{Action: "publish", Outcome: "auth_failed", At: time.Now()})
	deps.Counters = counters

	rec := get(t, testServer(t, deps).Handler(), "/api/v1/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var m SystemMetrics
	decode(t, rec, &m)
	if m.Requests.Total != 2 {
		t.Errorf("Requests.Total = %d, want 2", m.Requests.Total)
	}
	if m.Requests.ByOutcome["auth_failed"] != 1 {
		t.Errorf("ByOutcome[auth_failed] = %d, want 1", m.Requests.ByOutcome["auth_failed"])
	}
	if m.Runtime.Goroutines == 0 || m.Runtime.GoVersion == "" {
		t.Errorf("runtime metrics not populated: %+v", m.Runtime)
	}
	if m.Database == nil {
		t.Error("database metrics missing")
	}
}

func TestHandleMetrics_NoDatabase(t *testing.T) {
	deps, _ := testDeps(t)
	deps.DB = nil

	rec := get(t, testServer(t, deps).Handler(), "/api/v1/metrics")
	var m SystemMetrics
	decode(t, rec, &m)
	if m.Database != nil {
		t.Errorf("Database = %+v, want nil", m.Database)
	}
}

func TestHandleListEvents(t *testing.T) {
	deps, repo := testDeps(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, e := range []audit.Entry{
		{Action: "publish", User: "alice", Topic: "/d1/in/setup", Outcome: "ok"},
		{Action: "request", User: "alice", Topic: "/d1/in/params", Outcome: "timeout"},
		{Action: "publish", User: "bob", Topic: "/d2/in/setup", Outcome: "auth_failed"},
	} {
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := repo.Create(ctx, &e); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	h := testServer(t, deps).Handler()

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantTotal int
		wantPage  int
	}{
		{"all", "/api/v1/events", http.StatusOK, 3, 3},
		{"by user", "/api/v1/events?user=alice", http.StatusOK, 2, 2},
		{"by action and outcome", "/api/v1/events?action=publish&outcome=ok", http.StatusOK, 1, 1},
		{"paged", "/api/v1/events?limit=2&offset=2", http.StatusOK, 3, 1},
		{"bad limit", "/api/v1/events?limit=abc", http.StatusBadRequest, 0, 0},
		{"negative offset", "/api/v1/events?offset=-1", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var e Error
				decode(t, rec, &e)
				if e.Code != ErrCodeBadRequest {
					t.Errorf("error code = %q, want %q", e.Code, ErrCodeBadRequest)
				}
				return
			}
			var result audit.ListResult
			decode(t, rec, &result)
			if result.Total != tt.wantTotal || len(result.Events) != tt.wantPage {
				t.Errorf("total=%d page=%d, want total=%d page=%d",
					result.Total, len(result.Events), tt.wantTotal, tt.wantPage)
			}
		})
	}
}

func TestHandleListEvents_Errors(t *testing.T) {
	deps, _ := testDeps(t)

	deps.Events = nil
	if rec := get(t, testServer(t, deps).Handler(), "/api/v1/events"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("without repository status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	deps.Events = failingRepo{}
	if rec := get(t, testServer(t, deps).Handler(), "/api/v1/events"); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing repository status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestRouter_NotFound(t *testing.T) {
	deps, _ := testDeps(t)
	rec := get(t, testServer(t, deps).Handler(), "/api/v1/devices")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRequestID_Preserved(t *testing.T) {
	deps, _ := testDeps(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	testServer(t, deps).Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	deps, _ := testDeps(t)
	srv := testServer(t, deps)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := get(t, h, "/")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestServer_StartAndClose(t *testing.T) {
	deps, _ := testDeps(t)
	deps.Config.Port = testutil.FreePort(t)
	srv := testServer(t, deps)

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + net.JoinHostPort("127.0.0.1", strconv.Itoa(deps.Config.Port)) + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	deps, _ := testDeps(t)
	deps.Config.Port = ln.Addr().(*net.TCPAddr).Port
	if err := testServer(t, deps).Start(context.Background()); err == nil {
		t.Error("Start() on a bound port should fail")
	}
}

func TestServer_CloseWithoutStart(t *testing.T) {
	deps, _ := testDeps(t)
	if err := testServer(t, deps).Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

var _ Database = (*database.DB)(nil)
