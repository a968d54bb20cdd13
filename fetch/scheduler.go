// Package fetch drives price discovery requests against the target site:
// a bounded-concurrency job queue with dispatch pacing, burst stagger and
// cooldown-based retry on upstream throttling.
package fetch

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"staylens/models"
	"staylens/obs"
	"staylens/pricing"
)

// Outcome classifies one fetch attempt.
type Outcome int

const (
	OutcomeStats Outcome = iota
	OutcomeEmpty
	OutcomeRateLimited
)

// Result is what a Fetcher reports back for one job.
type Result struct {
	Outcome  Outcome
	Stats    *models.PriceStats
	Currency string
}

// Fetcher performs the actual network fetch + extraction for one date
// range. A returned error is a hard failure and resolves the key to a
// terminal empty entry.
type Fetcher interface {
	FetchRange(ctx context.Context, job models.FetchJob) (Result, error)
}

// Config carries the pacing knobs. Values follow what the target tolerates
// without throttling organic-looking traffic.
type Config struct {
	Concurrency         int           // simultaneous in-flight requests
	RoundDelay          time.Duration // minimum delay between dispatch rounds
	Stagger             time.Duration // delay between launches within a round
	Cooldown            time.Duration // wait before re-enqueueing a throttled job
	MaxRateLimitRetries int           // throttle retries per key before giving up
}

func DefaultConfig() Config {
	return Config{
		Concurrency:         2,
		RoundDelay:          900 * time.Millisecond,
		Stagger:             180 * time.Millisecond,
		Cooldown:            5 * time.Second,
		MaxRateLimitRetries: 5,
	}
}

// Scheduler owns the job queue. All queue state is guarded by one mutex,
// which also closes the enqueue/already-live race: two Enqueue calls for
// the same key can never both admit a job.
type Scheduler struct {
	cfg     Config
	fetcher Fetcher
	cache   *pricing.Cache
	metrics *obs.Metrics
	limiter *rate.Limiter

	mu       sync.Mutex
	queue    []models.FetchJob
	live     map[models.DateRangeKey]bool // queued, in flight, or cooling down
	inFlight int
	timers   map[models.DateRangeKey]*time.Timer

	// onTerminal, when set, observes every terminal resolution (for the
	// history store).
	onTerminal func(job models.FetchJob, entry models.PriceEntry)

	wake chan struct{}
}

func NewScheduler(cfg Config, fetcher Fetcher, cache *pricing.Cache, metrics *obs.Metrics) *Scheduler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		cache:   cache,
		metrics: metrics,
		limiter: rate.NewLimiter(rate.Every(cfg.RoundDelay), 1),
		live:    make(map[models.DateRangeKey]bool),
		timers:  make(map[models.DateRangeKey]*time.Timer),
		wake:    make(chan struct{}, 1),
	}
}

// OnTerminal registers a hook fired after each terminal cache write.
func (s *Scheduler) OnTerminal(fn func(job models.FetchJob, entry models.PriceEntry)) {
	s.mu.Lock()
	s.onTerminal = fn
	s.mu.Unlock()
}

// Enqueue admits a job unless its key is already terminally cached or
// already live (queued, in flight, or cooling down after a 429).
func (s *Scheduler) Enqueue(job models.FetchJob) {
	if s.cache.Get(job.Key).State.Terminal() {
		return
	}
	s.mu.Lock()
	if s.live[job.Key] {
		s.mu.Unlock()
		return
	}
	s.live[job.Key] = true
	s.queue = append(s.queue, job)
	s.mu.Unlock()

	s.cache.MarkPending(job.Key)
	s.signal()
}

// Reset drops the queue and cancels cooldown timers. In-flight requests are
// left to finish; their results land in the key-addressed cache, which is
// harmless. Called when the active date range changes.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	s.live = make(map[models.DateRangeKey]bool)
	s.queue = nil
	for key, t := range s.timers {
		t.Stop()
		delete(s.timers, key)
	}
	s.mu.Unlock()
}

// QueueDepth returns queued (not yet dispatched) jobs.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// InFlight returns the number of dispatched, unresolved jobs.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

// Run drains the queue until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Reset()
			return
		case <-s.wake:
		}
		s.drain(ctx)
	}
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) drain(ctx context.Context) {
	for {
		batch := s.takeBatch()
		if len(batch) == 0 {
			return
		}
		if err := s.limiter.Wait(ctx); err != nil {
			s.putBack(batch)
			return
		}
		for i, job := range batch {
			if i > 0 && !sleepCtx(ctx, s.cfg.Stagger) {
				s.putBack(batch[i:])
				return
			}
			s.launch(ctx, job)
		}
	}
}

// takeBatch pops up to the free concurrency slots worth of jobs and counts
// them as in flight immediately, so a concurrent drain round cannot
// overshoot the cap.
func (s *Scheduler) takeBatch() []models.FetchJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	free := s.cfg.Concurrency - s.inFlight
	if free <= 0 || len(s.queue) == 0 {
		return nil
	}
	if free > len(s.queue) {
		free = len(s.queue)
	}
	batch := make([]models.FetchJob, free)
	copy(batch, s.queue[:free])
	s.queue = append([]models.FetchJob(nil), s.queue[free:]...)
	s.inFlight += len(batch)
	return batch
}

func (s *Scheduler) putBack(jobs []models.FetchJob) {
	s.mu.Lock()
	s.queue = append(jobs, s.queue...)
	s.inFlight -= len(jobs)
	s.mu.Unlock()
}

func (s *Scheduler) launch(ctx context.Context, job models.FetchJob) {
	go func() {
		start := time.Now()
		res, err := s.fetcher.FetchRange(ctx, job)
		s.metrics.ObserveFetchDuration(time.Since(start).Seconds())
		s.complete(job, res, err)
	}()
}

func (s *Scheduler) complete(job models.FetchJob, res Result, err error) {
	s.mu.Lock()
	s.inFlight--
	stillLive := s.live[job.Key]
	s.mu.Unlock()

	switch {
	case err == nil && res.Outcome == OutcomeRateLimited:
		s.metrics.IncFetchOutcome("rate_limited")
		job.Attempts++
		if job.Attempts > s.cfg.MaxRateLimitRetries {
			log.Printf("fetch %s: throttled %d times, giving up", job.Key, job.Attempts)
			s.resolve(job, models.PriceEntry{State: models.StateEmpty})
			break
		}
		if !stillLive {
			// Queue was reset while we were in flight; drop silently.
			break
		}
		log.Printf("fetch %s: throttled, retry %d in %s", job.Key, job.Attempts, s.cfg.Cooldown)
		s.scheduleRetry(job)

	case err != nil || res.Outcome == OutcomeEmpty || res.Stats == nil:
		if err != nil {
			log.Printf("fetch %s failed: %v", job.Key, err)
			s.metrics.IncFetchOutcome("error")
		} else {
			s.metrics.IncFetchOutcome("empty")
		}
		s.resolve(job, models.PriceEntry{State: models.StateEmpty})

	default:
		s.metrics.IncFetchOutcome("stats")
		s.resolve(job, models.PriceEntry{
			State:    models.StateStats,
			Stats:    res.Stats,
			Currency: res.Currency,
		})
	}

	s.signal()
}

func (s *Scheduler) resolve(job models.FetchJob, entry models.PriceEntry) {
	s.mu.Lock()
	delete(s.live, job.Key)
	hook := s.onTerminal
	s.mu.Unlock()

	if entry.State == models.StateStats {
		s.cache.SetStats(job.Key, *entry.Stats, entry.Currency)
	} else {
		s.cache.SetEmpty(job.Key)
	}
	if hook != nil {
		hook(job, s.cache.Get(job.Key))
	}
}

// scheduleRetry parks a throttled job on a cancelable per-key timer. The
// key stays live for the whole cooldown so Enqueue keeps deduplicating.
func (s *Scheduler) scheduleRetry(job models.FetchJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[job.Key]; ok {
		t.Stop()
	}
	s.timers[job.Key] = time.AfterFunc(s.cfg.Cooldown, func() {
		s.mu.Lock()
		delete(s.timers, job.Key)
		if !s.live[job.Key] {
			// Reset happened during the cooldown.
			s.mu.Unlock()
			return
		}
		s.queue = append(s.queue, job)
		s.mu.Unlock()
		s.signal()
	})
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
