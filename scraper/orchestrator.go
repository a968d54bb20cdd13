// Package scraper ties the session, fetch scheduler, extraction engine
// and comparison state together and executes host-UI commands.
package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"staylens/calendar"
	"staylens/compare"
	"staylens/config"
	"staylens/details"
	"staylens/extract"
	"staylens/fetch"
	"staylens/httputil"
	"staylens/models"
	"staylens/obs"
	"staylens/pricing"
	"staylens/session"
	"staylens/storage"
)

// Triggerable allows workers to be kicked outside their interval.
type Triggerable interface {
	Trigger()
}

type Orchestrator struct {
	cfg     *config.Config
	site    *config.SiteConfig
	clients *httputil.Clients
	store   *storage.SQLiteStore
	history *storage.PostgresStore // optional
	metrics *obs.Metrics

	Session  *session.Session
	Cache    *pricing.Cache
	Selector *calendar.Selector
	Comparer *compare.Manager

	sched        *fetch.Scheduler
	detailWorker Triggerable

	mu     sync.Mutex
	runID  string
	run    *models.DiscoveryRun
	paused bool
}

func NewOrchestrator(cfg *config.Config, site *config.SiteConfig, store *storage.SQLiteStore, clients *httputil.Clients, metrics *obs.Metrics) (*Orchestrator, error) {
	comparer, err := compare.NewManager(store)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:      cfg,
		site:     site,
		clients:  clients,
		store:    store,
		metrics:  metrics,
		Session:  session.New(),
		Cache:    pricing.NewCache(),
		Comparer: comparer,
		runID:    uuid.NewString(),
	}

	fetchCfg := fetch.Config{
		Concurrency:         cfg.Fetch.Concurrency,
		RoundDelay:          time.Duration(cfg.Fetch.RoundDelayMS) * time.Millisecond,
		Stagger:             time.Duration(cfg.Fetch.StaggerMS) * time.Millisecond,
		Cooldown:            time.Duration(cfg.Fetch.CooldownMS) * time.Millisecond,
		MaxRateLimitRetries: cfg.Fetch.MaxRateLimitRetries,
	}
	if site != nil && site.RateLimitMS > 0 {
		fetchCfg.RoundDelay = time.Duration(site.RateLimitMS) * time.Millisecond
	}
	o.sched = fetch.NewScheduler(fetchCfg, o, o.Cache, metrics)
	o.sched.OnTerminal(o.recordTerminal)
	o.Selector = calendar.NewSelector(o.Cache, o.sched)

	o.Cache.OnChange(func() {
		metrics.SetCacheEntries(o.Cache.Len())
	})

	return o, nil
}

// SetHistory attaches the optional long-term observation store.
func (o *Orchestrator) SetHistory(history *storage.PostgresStore) {
	o.history = history
}

// SetDetailWorker registers the detail prefetch worker for triggering
// after compare mutations.
func (o *Orchestrator) SetDetailWorker(w Triggerable) {
	o.detailWorker = w
}

// Scheduler exposes the fetch scheduler for the daemon loop.
func (o *Orchestrator) Scheduler() *fetch.Scheduler {
	return o.sched
}

func (o *Orchestrator) siteID() string {
	if o.site != nil {
		return o.site.ID
	}
	return "default"
}

func (o *Orchestrator) priceSelectors() []string {
	if o.site != nil && len(o.site.PriceSelectors) > 0 {
		return o.site.PriceSelectors
	}
	return extract.DefaultPriceSelectors
}

// ObserveResultsURL ingests a search results URL seen by the host UI:
// it refreshes the session context and, when the URL carries dates,
// schedules discovery for that range.
func (o *Orchestrator) ObserveResultsURL(rawURL string) error {
	sc, err := session.ParseResultsURL(rawURL)
	if err != nil {
		return fmt.Errorf("parsing results url: %w", err)
	}
	o.Session.SetSearchContext(sc)
	log.Printf("session: %s, %d adults, %d rooms", sc.Destination, sc.Adults, sc.Rooms)

	if sc.HasDates() {
		key, err := models.NewDateRangeKey(sc.Checkin, sc.Checkout)
		if err != nil {
			return err
		}
		o.sched.Enqueue(models.FetchJob{Key: key, Checkin: sc.Checkin, Checkout: sc.Checkout})
	}
	return nil
}

// buildSearchURL renders the site's results URL for one date range using
// the current session occupancy.
func (o *Orchestrator) buildSearchURL(checkin, checkout time.Time) string {
	base := "https://www.booking.com"
	path := "/searchresults.html"
	if o.site != nil {
		if o.site.BaseURL != "" {
			base = o.site.BaseURL
		}
		if o.site.SearchPath != "" {
			path = o.site.SearchPath
		}
	}

	q := url.Values{}
	sc, ok := o.Session.SearchContext()
	if ok {
		q.Set("ss", sc.Destination)
		q.Set("group_adults", strconv.Itoa(sc.Adults))
		q.Set("group_children", strconv.Itoa(sc.Children))
		q.Set("no_rooms", strconv.Itoa(sc.Rooms))
	}
	q.Set("checkin", checkin.Format(models.DayFormat))
	q.Set("checkout", checkout.Format(models.DayFormat))
	if sorted, err := o.store.GetBoolPreference("sort_by_price"); err == nil && sorted {
		q.Set("order", "price")
	}
	return base + path + "?" + q.Encode()
}

// FetchRange performs one price discovery request. Throttling statuses
// are reported as an outcome, not an error, so the scheduler can apply
// its cooldown instead of giving up.
func (o *Orchestrator) FetchRange(ctx context.Context, job models.FetchJob) (fetch.Result, error) {
	searchURL := o.buildSearchURL(job.Checkin, job.Checkout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return fetch.Result{}, err
	}
	var extra map[string]string
	if o.site != nil {
		extra = o.site.Headers
	}
	httputil.ApplyBrowserHeaders(req, extra)

	resp, err := o.clients.Scraping.Do(req)
	if err != nil {
		return fetch.Result{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return fetch.Result{Outcome: fetch.OutcomeRateLimited}, nil
	case resp.StatusCode != http.StatusOK:
		return fetch.Result{}, fmt.Errorf("status %d for %s", resp.StatusCode, job.Key)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fetch.Result{}, fmt.Errorf("parsing results page: %w", err)
	}

	prices, currency := extract.ExtractPrices(doc, o.priceSelectors())
	if len(prices) == 0 {
		return fetch.Result{Outcome: fetch.OutcomeEmpty}, nil
	}
	o.Session.SetCurrency(currency)
	if currency == "" {
		currency = o.Session.Currency()
	}

	stats := pricing.CalcStats(prices)
	return fetch.Result{Outcome: fetch.OutcomeStats, Stats: &stats, Currency: currency}, nil
}

// FetchDocument retrieves a listing detail page for the detail pipeline.
func (o *Orchestrator) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	var extra map[string]string
	if o.site != nil {
		extra = o.site.Headers
	}
	httputil.ApplyBrowserHeaders(req, extra)

	resp, err := o.clients.Scraping.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d for %s", resp.StatusCode, pageURL)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// recordTerminal runs after each terminal cache write: it persists the
// observation and advances the current run's counters.
func (o *Orchestrator) recordTerminal(job models.FetchJob, entry models.PriceEntry) {
	o.mu.Lock()
	run := o.run
	runID := o.runID
	if run != nil {
		switch entry.State {
		case models.StateStats:
			run.KeysResolved++
		case models.StateEmpty:
			run.KeysEmpty++
		}
		if run.KeysResolved+run.KeysEmpty >= run.KeysRequested {
			o.finishRunLocked()
		}
	}
	o.mu.Unlock()

	if entry.State != models.StateStats || entry.Stats == nil || o.history == nil {
		return
	}
	obsRow := &models.PriceObservation{
		RunID:      runID,
		SiteID:     o.siteID(),
		Key:        job.Key,
		Checkin:    job.Checkin,
		Checkout:   job.Checkout,
		Min:        entry.Stats.Min,
		Max:        entry.Stats.Max,
		Avg:        entry.Stats.Avg,
		Count:      entry.Stats.Count,
		Currency:   entry.Currency,
		ObservedAt: entry.UpdatedAt,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.history.InsertObservation(ctx, obsRow); err != nil {
		log.Printf("history: insert observation for %s: %v", job.Key, err)
	}
}

func (o *Orchestrator) startRun(keys int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runID = uuid.NewString()
	run := &models.DiscoveryRun{
		SiteID:        o.siteID(),
		StartedAt:     time.Now(),
		Status:        models.RunStatusRunning,
		KeysRequested: keys,
	}
	id, err := o.store.CreateRun(run)
	if err != nil {
		log.Printf("run: create failed: %v", err)
		return
	}
	run.ID = id
	o.run = run
}

func (o *Orchestrator) finishRunLocked() {
	run := o.run
	if run == nil {
		return
	}
	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	if err := o.store.UpdateRun(run); err != nil {
		log.Printf("run: update failed: %v", err)
	}
	o.store.Log(&run.ID, models.LogLevelInfo,
		fmt.Sprintf("run finished: %d resolved, %d empty of %d", run.KeysResolved, run.KeysEmpty, run.KeysRequested),
		run.SiteID)
	o.run = nil
}

// RunAll re-runs price discovery for the active state: the session's own
// date range plus the calendar window when a check-in is selected.
func (o *Orchestrator) RunAll(ctx context.Context) error {
	o.mu.Lock()
	if o.paused {
		o.mu.Unlock()
		log.Println("refresh skipped: paused")
		return nil
	}
	o.mu.Unlock()

	o.sched.Reset()
	o.Cache.Reset()

	var jobs []models.FetchJob
	if sc, ok := o.Session.SearchContext(); ok && sc.HasDates() {
		if key, err := models.NewDateRangeKey(sc.Checkin, sc.Checkout); err == nil {
			jobs = append(jobs, models.FetchJob{Key: key, Checkin: sc.Checkin, Checkout: sc.Checkout})
		}
	}
	if checkin, ok := o.Selector.Selection(); ok {
		for i := 1; i <= calendar.ForwardWindowDays; i++ {
			checkout := checkin.AddDate(0, 0, i)
			key, err := models.NewDateRangeKey(checkin, checkout)
			if err != nil {
				continue
			}
			jobs = append(jobs, models.FetchJob{Key: key, Checkin: checkin, Checkout: checkout})
		}
	}
	if len(jobs) == 0 {
		log.Println("refresh: nothing to discover")
		return nil
	}

	o.startRun(len(jobs))
	log.Printf("refresh: discovering %d date ranges", len(jobs))
	for _, job := range jobs {
		o.sched.Enqueue(job)
	}
	return nil
}

// HandleCommand executes one queued host-UI command.
func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	o.metrics.IncCommand(string(cmd.Command))
	params, err := o.store.ParseCommandParams(cmd)
	if err != nil {
		return fmt.Errorf("parsing command params: %w", err)
	}

	switch cmd.Command {
	case models.CmdPickDate:
		day, err := time.Parse(models.DayFormat, params.Date)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", params.Date, err)
		}
		if o.isPaused() {
			log.Println("pick_date ignored: paused")
			return nil
		}
		o.Selector.PickDate(day)
		return nil

	case models.CmdClearSelection:
		o.Selector.ClearSelection()
		o.sched.Reset()
		return nil

	case models.CmdCompareAdd:
		entry := models.CompareEntry{
			URL:   params.URL,
			Name:  params.Name,
			Price: params.Price,
		}
		if err := o.Comparer.Add(entry); err != nil {
			return err
		}
		if o.detailWorker != nil {
			o.detailWorker.Trigger()
		}
		return nil

	case models.CmdCompareRemove:
		return o.Comparer.Remove(params.URL)

	case models.CmdCompareClear:
		return o.Comparer.Clear()

	case models.CmdRefresh:
		return o.RunAll(ctx)

	case models.CmdPause:
		o.setPaused(true)
		log.Println("discovery paused")
		return nil

	case models.CmdResume:
		o.setPaused(false)
		log.Println("discovery resumed")
		return nil

	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

func (o *Orchestrator) isPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

func (o *Orchestrator) setPaused(v bool) {
	o.mu.Lock()
	o.paused = v
	o.mu.Unlock()
	if v {
		o.sched.Reset()
	}
}

// EnsureDetails kicks the detail worker when a compared listing is still
// missing its captured details.
func (o *Orchestrator) EnsureDetails() {
	if o.detailWorker != nil && o.Comparer.NeedsDetails() {
		o.detailWorker.Trigger()
	}
}

// NewDetailPipeline builds the detail capture pipeline backed by this
// orchestrator's HTTP client and the given renderer.
func (o *Orchestrator) NewDetailPipeline(renderer details.Renderer) *details.Pipeline {
	return details.NewPipeline(o, renderer, o.metrics, o.cfg.Fetch.Concurrency)
}
