package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/ports"
	"FeedRanker/internal/scoring"
)

// ErrUpdateInProgress is returned when another worker holds the user's job key.
var ErrUpdateInProgress = errors.New("role update already in progress")

const (
	DefaultRoleWindowDays = 30
	defaultParallelism    = 4
	defaultLockTTL        = 5 * time.Minute
)

// RoleConfig tunes role recomputation.
type RoleConfig struct {
	WindowDays  int
	Parallelism int
	LockTTL     time.Duration
}

// RoleDeps wires the adapters used by the role profile engine.
type RoleDeps struct {
	Engagements ports.EngagementStore
	Profiles    ports.ProfileStore
	Cache       *cache.Layer
	Publisher   ports.ProfilePublisher
	Reporter    ports.Reporter
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Clock       func() time.Time
	Config      RoleConfig
}

// RoleService derives dynamic role profiles from recent engagement.
type RoleService struct {
	engagements ports.EngagementStore
	profiles    ports.ProfileStore
	cache       *cache.Layer
	publisher   ports.ProfilePublisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	cfg         RoleConfig
	batch       batchReporter
}

// NewRoleService constructs the role engine.
func NewRoleService(deps RoleDeps) *RoleService {
	cfg := deps.Config
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultRoleWindowDays
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	logger := componentLogger(deps.Logger, "roles")
	return &RoleService{
		engagements: deps.Engagements,
		profiles:    deps.Profiles,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         clockOrNow(deps.Clock),
		cfg:         cfg,
		batch:       batchReporter{reporter: deps.Reporter, metrics: deps.Metrics, logger: logger},
	}
}

// ComputeRoles aggregates VIEW, SAVE and SHARE events of the window into a
// normalized role distribution. An empty result means insufficient data.
func (s *RoleService) ComputeRoles(ctx context.Context, userID string, windowDays int) ([]domain.RoleWeight, error) {
	if windowDays <= 0 {
		windowDays = s.cfg.WindowDays
	}
	signals, err := s.engagements.EngagementSignals(ctx, userID, s.now().Add(-days(windowDays)), domain.SignalTypes())
	if err != nil {
		return nil, fmt.Errorf("load engagement signals: %w", err)
	}
	return scoring.AggregateRoles(signals), nil
}

// UpdateUser smooths the freshly computed roles into the stored profile. It returns
// nil when there is not enough engagement, leaving the profile untouched.
func (s *RoleService) UpdateUser(ctx context.Context, userID string) (*domain.UpdateResult, error) {
	return s.updateUser(ctx, userID, s.cfg.WindowDays)
}

func (s *RoleService) updateUser(ctx context.Context, userID string, windowDays int) (*domain.UpdateResult, error) {
	lockKey := cache.RoleLockKey(userID)
	if !s.cache.TryLock(ctx, lockKey, s.cfg.LockTTL) {
		return nil, ErrUpdateInProgress
	}
	defer s.cache.Unlock(ctx, lockKey)

	computed, err := s.ComputeRoles(ctx, userID, windowDays)
	if err != nil {
		return nil, err
	}
	if len(computed) == 0 {
		return nil, nil
	}

	previous, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	after := scoring.Smooth(previous.Roles, computed)
	if err := s.profiles.SaveProfile(ctx, domain.RoleProfile{UserID: userID, Roles: after, UpdatedAt: s.now()}); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.cache.InvalidatePattern(ctx, cache.FeedPattern(userID))

	result := &domain.UpdateResult{
		UserID:       userID,
		Before:       previous.Roles,
		After:        after,
		RolesTouched: scoring.RolesTouched(previous.Roles, after),
	}
	s.publish(ctx, *result)
	return result, nil
}

// UpdateAll recomputes, over the given window, every user with engagement in it. Per-user failures
// are counted and logged; only failing to list users aborts the run.
func (s *RoleService) UpdateAll(ctx context.Context, windowDays int) (domain.BatchResult, error) {
	const job = "roles"
	started := time.Now()
	if windowDays <= 0 {
		windowDays = s.cfg.WindowDays
	}

	users, err := s.engagements.ActiveUsers(ctx, s.now().Add(-days(windowDays)))
	if err != nil {
		s.batch.failed(job, err)
		return domain.BatchResult{}, fmt.Errorf("list active users: %w", err)
	}

	var processed, updated, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)

	for _, userID := range users {
		if ctx.Err() != nil {
			break
		}
		userID := userID
		g.Go(func() error {
			processed.Add(1)
			res, err := s.updateUser(ctx, userID, windowDays)
			switch {
			case errors.Is(err, ErrUpdateInProgress):
				s.logger.Info("role update skipped, job key held", "user_id", userID)
			case err != nil:
				failed.Add(1)
				s.logger.Error("role update failed", "user_id", userID, "error", err)
			case res != nil:
				updated.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	result := domain.BatchResult{
		Processed: int(processed.Load()),
		Updated:   int(updated.Load()),
		Errors:    int(failed.Load()),
	}
	s.batch.finish(ctx, job, result, time.Since(started))
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("role batch interrupted: %w", err)
	}
	return result, nil
}

// EstimateSkillLevel infers a skill level from the articles engaged with recently.
func (s *RoleService) EstimateSkillLevel(ctx context.Context, userID string) (domain.SkillLevel, error) {
	signals, err := s.engagements.EngagementSignals(ctx, userID, s.now().Add(-days(DefaultRoleWindowDays)), domain.SignalTypes())
	if err != nil {
		return "", fmt.Errorf("load engagement signals: %w", err)
	}
	return scoring.EstimateSkillLevel(signals), nil
}

func (s *RoleService) publish(ctx context.Context, result domain.UpdateResult) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishProfileUpdated(ctx, result)
	s.metrics.RecordEvent("profile_updated", err)
	if err != nil {
		s.logger.Warn("publish profile update failed", "user_id", result.UserID, "error", err)
	}
}
