package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/ports"
)

// DefaultRetentionDays bounds how long engagement events are kept.
const DefaultRetentionDays = 90

// EngagementDeps wires the adapters used by the engagement recorder.
type EngagementDeps struct {
	Articles      ports.ArticleRepository
	Engagements   ports.EngagementStore
	Cache         *cache.Layer
	Observer      ports.ActivityObserver
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	Clock         func() time.Time
	RetentionDays int
}

// EngagementService records user interactions, bumps article counters and
// invalidates the cache entries they make stale.
type EngagementService struct {
	articles    ports.ArticleRepository
	engagements ports.EngagementStore
	cache       *cache.Layer
	observer    ports.ActivityObserver
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
	retention   int
}

// NewEngagementService constructs the recorder.
func NewEngagementService(deps EngagementDeps) *EngagementService {
	retention := deps.RetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}
	return &EngagementService{
		articles:    deps.Articles,
		engagements: deps.Engagements,
		cache:       deps.Cache,
		observer:    deps.Observer,
		metrics:     deps.Metrics,
		logger:      componentLogger(deps.Logger, "engagement"),
		now:         clockOrNow(deps.Clock),
		retention:   retention,
	}
}

// RecordView keeps a single VIEW row per (user, article) and counts every view.
// Views do not invalidate the feed.
func (s *EngagementService) RecordView(ctx context.Context, userID, articleID string) error {
	e, err := s.prepare(ctx, userID, articleID, domain.EngagementView)
	if err != nil {
		return err
	}
	if err := s.engagements.UpsertView(ctx, e); err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	if err := s.articles.IncrementCounter(ctx, articleID, domain.CounterViews, 1); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	s.recorded(ctx, e)
	return nil
}

// RecordSave appends a SAVE event.
func (s *EngagementService) RecordSave(ctx context.Context, userID, articleID string) error {
	return s.appendCounted(ctx, userID, articleID, domain.EngagementSave, domain.CounterSaves, 1)
}

// RecordShare appends a SHARE event; repeated shares are distinct events.
func (s *EngagementService) RecordShare(ctx context.Context, userID, articleID string) error {
	return s.appendCounted(ctx, userID, articleID, domain.EngagementShare, domain.CounterShares, 1)
}

// RecordUnsave appends an UNSAVE event and decrements saves, never below zero.
func (s *EngagementService) RecordUnsave(ctx context.Context, userID, articleID string) error {
	return s.appendCounted(ctx, userID, articleID, domain.EngagementUnsave, domain.CounterSaves, -1)
}

// RecordRate stores a 1..5 rating. Ratings carry no counters and invalidate nothing.
func (s *EngagementService) RecordRate(ctx context.Context, userID, articleID string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: rating %d out of range 1..5", domain.ErrInvalidEngagement, rating)
	}
	e, err := s.prepare(ctx, userID, articleID, domain.EngagementRate)
	if err != nil {
		return err
	}
	e.Rating = rating
	if err := s.engagements.AppendEngagement(ctx, e); err != nil {
		return fmt.Errorf("record rate: %w", err)
	}
	s.recorded(ctx, e)
	return nil
}

// PurgeExpired deletes events past the retention window.
func (s *EngagementService) PurgeExpired(ctx context.Context) (int64, error) {
	before := s.now().Add(-days(s.retention))
	n, err := s.engagements.PurgeEngagements(ctx, before)
	if err != nil {
		s.metrics.RecordJobFailure("retention")
		return 0, fmt.Errorf("purge engagements: %w", err)
	}
	s.metrics.RecordJob("retention", int(n), int(n), 0, 0)
	s.logger.Info("purged expired engagements", "deleted", n, "before", before)
	return n, nil
}

func (s *EngagementService) appendCounted(ctx context.Context, userID, articleID string, typ domain.EngagementType, counter domain.Counter, delta int) error {
	e, err := s.prepare(ctx, userID, articleID, typ)
	if err != nil {
		return err
	}
	if err := s.engagements.AppendEngagement(ctx, e); err != nil {
		return fmt.Errorf("record %s: %w", strings.ToLower(string(typ)), err)
	}
	if err := s.articles.IncrementCounter(ctx, articleID, counter, delta); err != nil {
		return fmt.Errorf("update %s: %w", counter, err)
	}

	s.cache.Invalidate(ctx, cache.ArticleKey(articleID))
	s.cache.InvalidatePattern(ctx, cache.FeedPattern(userID))
	s.recorded(ctx, e)
	return nil
}

// prepare validates the pair and snapshots the article metadata onto the event.
func (s *EngagementService) prepare(ctx context.Context, userID, articleID string, typ domain.EngagementType) (domain.Engagement, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(articleID) == "" {
		return domain.Engagement{}, fmt.Errorf("%w: user and article ids are required", domain.ErrInvalidEngagement)
	}
	article, err := s.articles.GetArticle(ctx, articleID)
	if err != nil {
		return domain.Engagement{}, fmt.Errorf("load article %s: %w", articleID, err)
	}
	return domain.Engagement{
		UserID:            userID,
		ArticleID:         articleID,
		Type:              typ,
		ArticleRoles:      article.TargetRoles,
		ArticleTags:       article.Tags,
		ArticleSkillLevel: article.SkillLevel,
		CreatedAt:         s.now(),
	}, nil
}

func (s *EngagementService) recorded(ctx context.Context, e domain.Engagement) {
	s.metrics.RecordEngagement(string(e.Type))
	if s.observer == nil {
		return
	}
	err := s.observer.OnEngagement(ctx, e)
	s.metrics.RecordEvent("engagement", err)
	if err != nil {
		s.logger.Warn("activity observer failed",
			"user_id", e.UserID, "article_id", e.ArticleID, "type", e.Type, "error", err)
	}
}
