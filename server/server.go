// Package server exposes the daemon's state to the host UI over a local
// HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"staylens/calendar"
	"staylens/compare"
	"staylens/models"
	"staylens/obs"
	"staylens/scraper"
	"staylens/storage"
)

type Server struct {
	orchestrator *scraper.Orchestrator
	store        *storage.SQLiteStore
	metrics      *obs.Metrics
	mux          *chi.Mux
}

func New(orchestrator *scraper.Orchestrator, store *storage.SQLiteStore, metrics *obs.Metrics, registry *prometheus.Registry) *Server {
	s := &Server{
		orchestrator: orchestrator,
		store:        store,
		metrics:      metrics,
		mux:          chi.NewRouter(),
	}

	s.mux.Use(chimw.RealIP)
	s.mux.Use(chimw.RequestID)
	s.mux.Use(chimw.Recoverer)
	s.mux.Use(chimw.Timeout(15 * time.Second))

	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/search/context", s.handleSearchContext)
		r.Post("/search/context", s.handleObserveURL)
		r.Get("/calendar/badges", s.handleBadges)
		r.Post("/calendar/pick", s.handlePickDate)
		r.Post("/calendar/clear", s.handleClearSelection)
		r.Get("/compare", s.handleCompare)
		r.Post("/compare/add", s.handleCompareAdd)
		r.Post("/compare/remove", s.handleCompareRemove)
		r.Post("/compare/clear", s.handleCompareClear)
		r.Get("/prefs/sort-by-price", s.handleGetSortPref)
		r.Post("/prefs/sort-by-price", s.handleSetSortPref)
	})

	return s
}

func (s *Server) Mux() http.Handler { return s.mux }

// defaultBadgeDays covers one calendar page of check-in candidates.
const (
	defaultBadgeDays = 31
	maxBadgeDays     = 62
)

var (
	errMissingURL = errors.New("url is required")
	errBadDays    = errors.New("days must be between 1 and 62")
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("http: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearchContext(w http.ResponseWriter, _ *http.Request) {
	sc, ok := s.orchestrator.Session.SearchContext()
	writeJSON(w, http.StatusOK, map[string]any{
		"known":    ok,
		"context":  sc,
		"currency": s.orchestrator.Session.Currency(),
	})
}

func (s *Server) handleObserveURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.orchestrator.ObserveResultsURL(body.URL); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBadges serves the selection window when a check-in is picked.
// Without one it falls back to per-day badges using the search context's
// stay length, starting from ?start= (default today) over ?days= days.
func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncBadgeRequests()
	checkin, selected := s.orchestrator.Selector.Selection()
	resp := map[string]any{"selected": selected}

	if selected {
		resp["checkin"] = checkin.Format(models.DayFormat)
		resp["badges"] = s.orchestrator.Selector.Badges()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	sc, ok := s.orchestrator.Session.SearchContext()
	if !ok || sc.Nights <= 0 {
		resp["badges"] = []calendar.Badge(nil)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	start := time.Now().Truncate(24 * time.Hour)
	if raw := r.URL.Query().Get("start"); raw != "" {
		parsed, err := time.Parse(models.DayFormat, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		start = parsed
	}
	days := defaultBadgeDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxBadgeDays {
			writeError(w, http.StatusBadRequest, errBadDays)
			return
		}
		days = parsed
	}

	resp["nights"] = sc.Nights
	resp["badges"] = s.orchestrator.Selector.DayWindow(start, days, sc.Nights)
	writeJSON(w, http.StatusOK, resp)
}

// handlePickDate enqueues a pick_date command instead of acting inline,
// so HTTP and store-queued clicks follow the same path.
func (s *Server) handlePickDate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := time.Parse(models.DayFormat, body.Date); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.EnqueueCommand(models.CmdPickDate, &models.CommandParams{Date: body.Date}); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.EnqueueCommand(models.CmdClearSelection, nil); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.metrics.IncCompareBuilds()
	s.orchestrator.EnsureDetails()
	opts := compare.MatrixOptions{
		Section:  r.URL.Query().Get("section"),
		DiffOnly: r.URL.Query().Get("diff") == "1",
	}
	writeJSON(w, http.StatusOK, s.orchestrator.Comparer.Matrix(opts))
}

func (s *Server) handleCompareAdd(w http.ResponseWriter, r *http.Request) {
	var body models.CommandParams
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, errMissingURL)
		return
	}
	if err := s.store.EnqueueCommand(models.CmdCompareAdd, &body); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleCompareRemove(w http.ResponseWriter, r *http.Request) {
	var body models.CommandParams
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.EnqueueCommand(models.CmdCompareRemove, &body); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleCompareClear(w http.ResponseWriter, _ *http.Request) {
	if err := s.store.EnqueueCommand(models.CmdCompareClear, nil); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleGetSortPref(w http.ResponseWriter, _ *http.Request) {
	val, err := s.store.GetBoolPreference("sort_by_price")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sort_by_price": val})
}

func (s *Server) handleSetSortPref(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SortByPrice bool `json:"sort_by_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SetBoolPreference("sort_by_price", body.SortByPrice); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"sort_by_price": body.SortByPrice})
}
