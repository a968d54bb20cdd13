package details

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"staylens/extract"
	"staylens/identity"
	"staylens/models"
	"staylens/obs"
)

// PageFetcher retrieves a listing page as parsed HTML over plain HTTP.
type PageFetcher interface {
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Renderer retrieves a listing page through a real browser, after the
// site's scripts have populated the DOM.
type Renderer interface {
	RenderDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Pipeline captures detail snapshots for listings. Each listing gets up
// to three passes: a plain fetch, a retry when the first pass came back
// thin, and a rendered capture when the retry did too. Rendering is the
// expensive last resort, never the first move.
type Pipeline struct {
	fetcher     PageFetcher
	renderer    Renderer // nil disables the rendered stage
	metrics     *obs.Metrics
	maxParallel int
}

func NewPipeline(fetcher PageFetcher, renderer Renderer, metrics *obs.Metrics, maxParallel int) *Pipeline {
	if maxParallel <= 0 {
		maxParallel = 2
	}
	return &Pipeline{fetcher: fetcher, renderer: renderer, metrics: metrics, maxParallel: maxParallel}
}

// Capture runs the staged pipeline for one listing and returns the raw
// snapshots. An error means not even the initial fetch produced a page.
func (p *Pipeline) Capture(ctx context.Context, url string) ([]models.DetailSnapshot, error) {
	snap, err := p.fetchStage(ctx, url, models.StageInitial)
	if err != nil {
		return nil, fmt.Errorf("initial fetch of %s: %w", url, err)
	}
	snapshots := []models.DetailSnapshot{snap}

	merged := Merge(snapshots)
	if !merged.Sparse() {
		return snapshots, nil
	}

	if retry, err := p.fetchStage(ctx, url, models.StageRetry); err != nil {
		log.Printf("details %s: retry fetch failed: %v", url, err)
	} else {
		snapshots = append(snapshots, retry)
	}

	merged = Merge(snapshots)
	if !merged.Sparse() || p.renderer == nil {
		return snapshots, nil
	}

	rendered, err := p.renderStage(ctx, url)
	if err != nil {
		log.Printf("details %s: rendered capture failed: %v", url, err)
		return snapshots, nil
	}
	return append(snapshots, rendered), nil
}

func (p *Pipeline) fetchStage(ctx context.Context, url string, stage models.SnapshotStage) (models.DetailSnapshot, error) {
	doc, err := p.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return models.DetailSnapshot{}, err
	}
	p.metrics.IncDetailStage(string(stage))
	return models.DetailSnapshot{
		Stage:     stage,
		Details:   extract.ExtractDetails(doc),
		FetchedAt: time.Now(),
	}, nil
}

// renderStageTimeout is the wall clock for one rendered capture, covering
// navigation, the scroll nudges and the content dump.
const renderStageTimeout = 20 * time.Second

func (p *Pipeline) renderStage(ctx context.Context, url string) (models.DetailSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, renderStageTimeout)
	defer cancel()
	doc, err := p.renderer.RenderDocument(ctx, url)
	if err != nil {
		return models.DetailSnapshot{}, err
	}
	p.metrics.IncDetailStage(string(models.StageRendered))
	return models.DetailSnapshot{
		Stage:     models.StageRendered,
		Details:   extract.ExtractDetails(doc),
		FetchedAt: time.Now(),
	}, nil
}

// CaptureAll fans the pipeline out over listings and returns merged
// details keyed by canonical listing id. Listings that fail entirely are
// dropped from the result, not fatal to the batch.
func (p *Pipeline) CaptureAll(ctx context.Context, urls []string) map[string]models.HotelDetails {
	var mu sync.Mutex
	out := make(map[string]models.HotelDetails, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for _, url := range urls {
		url := url
		g.Go(func() error {
			snapshots, err := p.Capture(ctx, url)
			if err != nil {
				log.Printf("details: %v", err)
				return nil
			}
			merged := Merge(snapshots)
			mu.Lock()
			out[identity.ListingID(url)] = merged
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return out
}
