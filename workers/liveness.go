package workers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"staylens/compare"
	"staylens/httputil"
	"staylens/models"
)

// LivenessWorker probes compared listings with HEAD requests and marks
// the ones whose pages no longer resolve, so the matrix can grey them
// out instead of comparing against stale data.
type LivenessWorker struct {
	comparer   *compare.Manager
	httpClient *http.Client
	triggerCh  chan struct{}
	logFunc    LogFunc
}

func NewLivenessWorker(comparer *compare.Manager, clients *httputil.Clients) *LivenessWorker {
	return &LivenessWorker{
		comparer:   comparer,
		httpClient: clients.API,
		triggerCh:  make(chan struct{}, 1),
		logFunc:    NoOpLogger,
	}
}

func (w *LivenessWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately.
func (w *LivenessWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the liveness loop.
func (w *LivenessWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Liveness worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		case <-w.triggerCh:
			log.Println("Liveness worker triggered")
			w.processBatch(ctx)
		}
	}
}

func (w *LivenessWorker) processBatch(ctx context.Context) {
	entries := w.comparer.Entries()
	var checked, gone int
	for _, e := range entries {
		if !e.IsActive || e.URL == "" {
			continue
		}
		checked++
		if w.isGone(ctx, e.URL) {
			gone++
			log.Printf("Liveness: %s no longer resolves", e.ID)
			if err := w.comparer.MarkInactive(e.ID); err != nil {
				log.Printf("Liveness: mark inactive failed: %v", err)
			}
		}
		// Space the probes out a little.
		time.Sleep(500 * time.Millisecond)
	}
	if gone > 0 {
		w.logFunc(models.LogLevelInfo, "liveness", fmt.Sprintf("checked %d listings, %d gone", checked, gone))
	}
}

func (w *LivenessWorker) isGone(ctx context.Context, listingURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, listingURL, nil)
	if err != nil {
		return false
	}
	httputil.ApplyBrowserHeaders(req, nil)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// Transient network trouble never retires an entry.
		return false
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return true
	case http.StatusMovedPermanently, http.StatusFound:
		return isDelistRedirect(resp.Header.Get("Location"))
	}
	return false
}

// isDelistRedirect reports whether a redirect target points back at a
// search or error page rather than another listing.
func isDelistRedirect(location string) bool {
	lower := strings.ToLower(location)
	for _, pattern := range []string{"/searchresults", "/index", "notfound", "error"} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
