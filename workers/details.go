package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"staylens/compare"
	"staylens/details"
	"staylens/identity"
	"staylens/models"
)

// DetailWorker keeps merged hotel details attached to the comparison
// selection. It re-runs the capture pipeline on an interval and whenever
// the selection changes.
type DetailWorker struct {
	pipeline  *details.Pipeline
	comparer  *compare.Manager
	triggerCh chan struct{}
	logFunc   LogFunc
}

func NewDetailWorker(pipeline *details.Pipeline, comparer *compare.Manager) *DetailWorker {
	return &DetailWorker{
		pipeline:  pipeline,
		comparer:  comparer,
		triggerCh: make(chan struct{}, 1),
		logFunc:   NoOpLogger,
	}
}

func (w *DetailWorker) SetLogger(fn LogFunc) {
	w.logFunc = fn
}

// Trigger causes the worker to run immediately.
func (w *DetailWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

// Run starts the detail worker loop.
func (w *DetailWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Detail worker stopping")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		case <-w.triggerCh:
			log.Println("Detail worker triggered")
			w.processBatch(ctx)
		}
	}
}

func (w *DetailWorker) processBatch(ctx context.Context) {
	entries := w.comparer.Entries()
	var urls []string
	for _, e := range entries {
		if e.IsActive {
			urls = append(urls, e.URL)
		}
	}
	if len(urls) == 0 {
		return
	}

	log.Printf("Detail worker: capturing %d listings", len(urls))
	captured := w.pipeline.CaptureAll(ctx, urls)
	for id, d := range captured {
		w.comparer.SetDetails(id, d)
	}

	for _, u := range urls {
		if _, ok := captured[identity.ListingID(u)]; !ok {
			w.logFunc(models.LogLevelWarn, "details", fmt.Sprintf("capture failed for %s", u))
		}
	}
	if len(captured) > 0 {
		w.logFunc(models.LogLevelInfo, "details", fmt.Sprintf("captured details for %d of %d listings", len(captured), len(urls)))
	}
}
