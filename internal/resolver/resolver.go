// Package resolver keeps the schedule state of one monitored page up to date.
//
// A Resolver has two cadences: a slow fetch cycle, which gets and parses the page, and a fast tick, which
// re-evaluates the cached state against the current time without touching the network.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clambin/energyua-monitor/internal/parser"
	"github.com/clambin/energyua-monitor/internal/schedule"
	"github.com/clambin/energyua-monitor/pkg/pubsub"
	"github.com/clambin/energyua-monitor/pkg/scheduler"
)

const (
	DefaultFetchInterval = 5 * time.Minute
	// DefaultTickInterval is the recompute cadence.
	DefaultTickInterval = time.Minute
)

var ErrNoData = errors.New("no page fetched yet")

// Fetcher gets the raw content of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FailureMode determines how a failed fetch is reported. The cached state is never touched.
type FailureMode string

const (
	// RetainOnError logs the failure and keeps the last snapshot.
	RetainOnError FailureMode = "retain"
	// FailOnError returns the failure from the fetch cycle.
	FailOnError FailureMode = "error"
)

type Config struct {
	URL           string
	FetchInterval time.Duration
	TickInterval  time.Duration
	Pretrigger    schedule.Pretrigger
	Location      *time.Location
	OnFetchError  FailureMode
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

type Resolver struct {
	*pubsub.Publisher[schedule.Snapshot]
	fetcher  Fetcher
	parser   parser.Parser
	cfg      Config
	logger   *slog.Logger
	refresh  chan struct{}
	fetching sync.Mutex
	lock     sync.RWMutex
	state    schedule.State
	snapshot *schedule.Snapshot
	raw      string
	rawAt    time.Time
	fetched  bool
}

func New(f Fetcher, p parser.Parser, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.FetchInterval <= 0 {
		cfg.FetchInterval = DefaultFetchInterval
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Resolver{
		Publisher: pubsub.New[schedule.Snapshot](logger.With(slog.String("component", "pubsub"))),
		fetcher:   f,
		parser:    p,
		cfg:       cfg,
		logger:    logger,
		refresh:   make(chan struct{}, 1),
	}
}

// Run fetches the page right away and then every FetchInterval, until ctx is done. The tick starts once a fetch
// cycle has succeeded. Both cadences stop when Run returns.
func (r *Resolver) Run(ctx context.Context) error {
	r.logger.Debug("started", slog.Duration("interval", r.cfg.FetchInterval), slog.String("url", r.cfg.URL))

	fetch := scheduler.Every(ctx, r.cfg.FetchInterval, scheduler.TaskFunc(r.FetchCycle))
	var tick *scheduler.Job
	defer func() {
		if tick != nil {
			tick.Cancel()
		}
		fetch.Cancel()
		runs, _ := fetch.Result()
		r.logger.Debug("stopped", slog.Int("fetches", runs))
	}()

	fetch.Trigger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.refresh:
			fetch.Trigger()
		case <-fetch.Ran():
			if _, err := fetch.Result(); errors.Is(err, scheduler.ErrFailed) {
				r.logger.Error("fetch cycle failed", slog.Any("err", err))
			}
			if tick == nil && r.hasState() {
				tick = scheduler.Every(ctx, r.cfg.TickInterval, scheduler.TaskFunc(func(_ context.Context) error {
					r.Tick()
					return nil
				}))
				r.logger.Debug("tick started", slog.Duration("interval", r.cfg.TickInterval))
			}
		}
	}
}

// Refresh asks Run to start a fetch cycle now. If one is already pending, the call has no effect.
func (r *Resolver) Refresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

// FetchCycle gets and parses the page, replaces the cached state and publishes a new snapshot.
// If the fetch fails, the cached state and the last snapshot are left as they are.
func (r *Resolver) FetchCycle(ctx context.Context) error {
	r.fetching.Lock()
	defer r.fetching.Unlock()

	start := time.Now()
	raw, err := r.fetcher.Fetch(ctx, r.cfg.URL)
	if err != nil {
		if r.cfg.OnFetchError == FailOnError {
			return fmt.Errorf("fetch: %w", err)
		}
		r.logger.Warn("fetch failed. keeping last snapshot", slog.Any("err", err))
		return nil
	}

	now := r.now()
	result := r.parser.Parse(parser.NewPage(raw), now)

	r.lock.Lock()
	defer r.lock.Unlock()
	r.raw, r.rawAt, r.fetched = raw, now, true
	r.state = result.State
	s := r.publish(now)

	r.logger.Debug("fetch cycle completed",
		slog.Duration("duration", time.Since(start)),
		slog.Int("size", len(raw)),
		slog.String("strategy", result.Strategy.String()),
		slog.Int("intervals", len(s.Intervals)),
		slog.Int("dropped", result.Dropped),
		slog.Int("minutes_until", s.MinutesUntil),
	)
	return nil
}

// Tick re-evaluates the cached state at the current time and publishes a new snapshot.
// Before the first successful fetch cycle, Tick does nothing.
func (r *Resolver) Tick() {
	now := r.now()
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.state == nil {
		return
	}
	r.publish(now)
}

// publish must be called with the lock held.
func (r *Resolver) publish(now time.Time) schedule.Snapshot {
	s := r.state.Evaluate(now, r.cfg.Pretrigger)
	s.SourceURL = r.cfg.URL
	r.snapshot = &s
	r.Publisher.Publish(s)
	return s
}

// Subscribe returns a channel that receives each new snapshot. If a snapshot was already published, the channel
// receives it right away.
func (r *Resolver) Subscribe() chan schedule.Snapshot {
	r.lock.RLock()
	defer r.lock.RUnlock()
	ch := r.Publisher.Subscribe()
	if r.snapshot != nil {
		ch <- *r.snapshot
	}
	return ch
}

// Snapshot returns the last published snapshot. The boolean is false if none was published yet.
func (r *Resolver) Snapshot() (schedule.Snapshot, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.snapshot == nil {
		return schedule.Snapshot{}, false
	}
	return *r.snapshot, true
}

// LastPage returns the raw content of the last fetched page, whether or not it could be parsed.
func (r *Resolver) LastPage() (string, time.Time, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.raw, r.rawAt, r.fetched
}

// DumpRaw writes the last fetched page, unmodified, to a new file in dir and returns its path.
func (r *Resolver) DumpRaw(dir string) (string, error) {
	raw, fetchedAt, ok := r.LastPage()
	if !ok {
		return "", ErrNoData
	}
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, "energyua-"+fetchedAt.Format("20060102T150405")+".html")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		return "", fmt.Errorf("dump: %w", err)
	}
	return path, nil
}

func (r *Resolver) hasState() bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.state != nil
}

func (r *Resolver) now() time.Time {
	return r.cfg.Now().In(r.cfg.Location)
}
