package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"FeedRanker/internal/ports"
)

// ScheduleConfig holds cron specs per batch job; an empty spec disables the job.
type ScheduleConfig struct {
	Trending  string
	Roles     string
	Scoring   string
	Retention string
}

// Jobs are the batch entry points driven by the scheduler. Nil services are skipped.
type Jobs struct {
	Trending   *TrendingService
	Roles      *RoleService
	Scoring    *ScoringService
	Engagement *EngagementService
}

// Scheduler wires the cron-like driver with the batch use cases.
type Scheduler struct {
	driver ports.Scheduler
	jobs   Jobs
	cfg    ScheduleConfig
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, jobs Jobs, cfg ScheduleConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, jobs: jobs, cfg: cfg, logger: componentLogger(logger, "jobs")}
}

// Start registers the configured jobs with the driver and starts it.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	type entry struct {
		name string
		spec string
		run  func(context.Context) error
	}
	var entries []entry

	if s.jobs.Trending != nil {
		entries = append(entries, entry{"trending", s.cfg.Trending, func(ctx context.Context) error {
			_, err := s.jobs.Trending.ComputeAllPeriods(ctx)
			return err
		}})
	}
	if s.jobs.Roles != nil {
		entries = append(entries, entry{"roles", s.cfg.Roles, func(ctx context.Context) error {
			_, err := s.jobs.Roles.UpdateAll(ctx, 0)
			return err
		}})
	}
	if s.jobs.Scoring != nil {
		entries = append(entries, entry{"scoring", s.cfg.Scoring, func(ctx context.Context) error {
			_, err := s.jobs.Scoring.ScorePending(ctx, 0)
			return err
		}})
	}
	if s.jobs.Engagement != nil {
		entries = append(entries, entry{"retention", s.cfg.Retention, func(ctx context.Context) error {
			_, err := s.jobs.Engagement.PurgeExpired(ctx)
			return err
		}})
	}

	for _, e := range entries {
		if e.spec == "" {
			s.logger.Info("job disabled", "job", e.name)
			continue
		}
		run := e.run
		name := e.name
		job := func(ctx context.Context) {
			if err := run(ctx); err != nil {
				s.logger.Error("scheduled job failed", "job", name, "error", err)
			}
		}
		if err := s.driver.Schedule(name, e.spec, job); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
		s.logger.Info("job scheduled", "job", name, "spec", e.spec)
	}

	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
