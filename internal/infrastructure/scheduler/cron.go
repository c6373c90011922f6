package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"FeedRanker/internal/ports"
	"FeedRanker/pkg/logger"
)

// CronScheduler runs named jobs on six-field cron specs (seconds first) or
// descriptors such as @hourly. A job still running when its next tick fires is skipped.
type CronScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
	started bool
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler evaluating specs in loc.
func NewCronScheduler(loc *time.Location, log *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := cron.NewWithLocation(loc)
	c.ErrorLog = logger.NewWith(log, "cron")
	return &CronScheduler{cron: c, logger: log.With("component", "scheduler")}
}

// Schedule registers a job; it must be called before Start.
func (c *CronScheduler) Schedule(name, spec string, job func(context.Context)) error {
	if job == nil {
		return fmt.Errorf("job %s is nil", name)
	}

	var busy atomic.Bool
	err := c.cron.AddJob(spec, namedJob{name: name, run: func() {
		if !busy.CompareAndSwap(false, true) {
			c.logger.Warn("previous run still active, skipping", "job", name)
			return
		}
		defer busy.Store(false)

		ctx, ok := c.acquire()
		if !ok {
			return
		}
		defer c.running.Done()

		started := time.Now()
		c.logger.Info("job started", "job", name)
		job(ctx)
		c.logger.Info("job finished", "job", name, "elapsed", time.Since(started).Round(time.Millisecond))
	}})
	if err != nil {
		return fmt.Errorf("parse cron spec %q for %s: %w", spec, name, err)
	}
	return nil
}

// acquire registers a run with the wait group while the scheduler is live.
func (c *CronScheduler) acquire() (context.Context, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started || c.ctx.Err() != nil {
		return nil, false
	}
	c.running.Add(1)
	return c.ctx, true
}

// Start begins firing jobs; they receive a context derived from ctx.
func (c *CronScheduler) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true
	c.cron.Start()
	for name, next := range c.NextRuns() {
		c.logger.Info("job next run", "job", name, "at", next)
	}
	return nil
}

// Stop halts scheduling, cancels running jobs and waits for them until ctx expires.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = false
	c.cron.Stop()
	c.cancel()
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for running jobs: %w", ctx.Err())
	}
}

// NextRuns reports the next activation time of every registered job by name.
// Times are zero until the scheduler has started.
func (c *CronScheduler) NextRuns() map[string]time.Time {
	out := map[string]time.Time{}
	for _, e := range c.cron.Entries() {
		if j, ok := e.Job.(namedJob); ok {
			out[j.name] = e.Next
		}
	}
	return out
}

type namedJob struct {
	name string
	run  func()
}

func (j namedJob) Run() { j.run() }
