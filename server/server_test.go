package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"staylens/config"
	"staylens/httputil"
	"staylens/models"
	"staylens/obs"
	"staylens/scraper"
	"staylens/storage"
)

func newTestServer(t *testing.T) (*Server, *scraper.Orchestrator, *storage.SQLiteStore) {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{Fetch: config.FetchConfig{Concurrency: 1, MaxRateLimitRetries: 1}}
	o, err := scraper.NewOrchestrator(cfg, nil, store, httputil.NewClients(), obs.New(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}

	registry := prometheus.NewRegistry()
	return New(o, store, obs.New(registry), registry), o, store
}

func TestBadgesWithoutSelectionOrContext(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/badges", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Selected bool            `json:"selected"`
		Badges   json.RawMessage `json:"badges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Selected {
		t.Fatal("selected without a pick")
	}
	if string(body.Badges) != "null" {
		t.Fatalf("badges = %s", body.Badges)
	}
}

func TestBadgesFallBackToSearchContext(t *testing.T) {
	srv, o, _ := newTestServer(t)

	checkin := time.Now().AddDate(0, 0, 5).Truncate(24 * time.Hour)
	o.Session.SetSearchContext(models.SearchContext{
		Destination: "Innsbruck",
		Adults:      2,
		Rooms:       1,
		Checkin:     checkin,
		Checkout:    checkin.AddDate(0, 0, 3),
		Nights:      3,
	})

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/badges?days=7", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Selected bool `json:"selected"`
		Nights   int  `json:"nights"`
		Badges   []struct {
			Nights int    `json:"nights"`
			State  string `json:"state"`
		} `json:"badges"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Selected || body.Nights != 3 {
		t.Fatalf("selected=%v nights=%d", body.Selected, body.Nights)
	}
	if len(body.Badges) != 7 {
		t.Fatalf("badges = %d", len(body.Badges))
	}
	for _, b := range body.Badges {
		if b.Nights != 3 {
			t.Fatalf("badge nights = %d", b.Nights)
		}
	}
}

func TestBadgesRejectBadDays(t *testing.T) {
	srv, o, _ := newTestServer(t)

	checkin := time.Now().AddDate(0, 0, 5).Truncate(24 * time.Hour)
	o.Session.SetSearchContext(models.SearchContext{
		Checkin:  checkin,
		Checkout: checkin.AddDate(0, 0, 2),
		Nights:   2,
	})

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar/badges?days=200", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPickDateQueuesCommand(t *testing.T) {
	srv, _, store := newTestServer(t)

	body := strings.NewReader(`{"date":"2026-09-10"}`)
	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/calendar/pick", body))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}

	cmds, err := store.GetPendingCommands()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(cmds) != 1 || cmds[0].Command != models.CmdPickDate {
		t.Fatalf("queue = %+v", cmds)
	}
	params, _ := store.ParseCommandParams(&cmds[0])
	if params.Date != "2026-09-10" {
		t.Fatalf("date = %q", params.Date)
	}
}

func TestCompareAddRequiresURL(t *testing.T) {
	srv, _, store := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/compare/add", strings.NewReader(`{"name":"Alpenhof"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if cmds, _ := store.GetPendingCommands(); len(cmds) != 0 {
		t.Fatalf("queued %d commands", len(cmds))
	}

	rec = httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/compare/add",
		strings.NewReader(`{"url":"https://www.example.com/hotel/at/alpenhof.html","name":"Alpenhof"}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	cmds, _ := store.GetPendingCommands()
	if len(cmds) != 1 || cmds[0].Command != models.CmdCompareAdd {
		t.Fatalf("queue = %+v", cmds)
	}
}

func TestSortPreferenceRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/prefs/sort-by-price", strings.NewReader(`{"sort_by_price":true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("set status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prefs/sort-by-price", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var body map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body["sort_by_price"] {
		t.Fatal("preference did not persist")
	}
}
