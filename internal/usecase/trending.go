package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/parser"
	"FeedRanker/internal/ports"
	"FeedRanker/internal/scoring"
)

// DefaultTrendingPeriods are the windows, in days, refreshed by the hourly job.
var DefaultTrendingPeriods = []int{1, 7, 30}

// TrendingConfig tunes trending caching.
type TrendingConfig struct {
	PeriodTTL time.Duration
	RoleTTL   time.Duration
	// CacheSize is how many entries are cached per period.
	CacheSize int
	Periods   []int
}

// TrendingDeps wires the adapters used by the trending engine.
type TrendingDeps struct {
	Articles ports.ArticleRepository
	Cache    *cache.Layer
	Reporter ports.Reporter
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
	Config   TrendingConfig
}

// TrendingService ranks recent articles by gravity-decayed popularity.
type TrendingService struct {
	articles ports.ArticleRepository
	cache    *cache.Layer
	logger   *slog.Logger
	now      func() time.Time
	cfg      TrendingConfig
	batch    batchReporter
}

// NewTrendingService constructs the trending engine.
func NewTrendingService(deps TrendingDeps) *TrendingService {
	cfg := deps.Config
	if cfg.PeriodTTL <= 0 {
		cfg.PeriodTTL = time.Hour
	}
	if cfg.RoleTTL <= 0 {
		cfg.RoleTTL = 30 * time.Minute
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 50
	}
	if len(cfg.Periods) == 0 {
		cfg.Periods = DefaultTrendingPeriods
	}
	logger := componentLogger(deps.Logger, "trending")
	return &TrendingService{
		articles: deps.Articles,
		cache:    deps.Cache,
		logger:   logger,
		now:      clockOrNow(deps.Clock),
		cfg:      cfg,
		batch:    batchReporter{reporter: deps.Reporter, metrics: deps.Metrics, logger: logger},
	}
}

// ComputeTrending scores the window's candidates at the current instant.
func (s *TrendingService) ComputeTrending(ctx context.Context, windowDays, limit int) ([]domain.TrendingArticle, error) {
	return s.compute(ctx, windowDays, limit, nil)
}

// ComputeAllPeriods refreshes the cached list of every configured period.
func (s *TrendingService) ComputeAllPeriods(ctx context.Context) (domain.BatchResult, error) {
	started := time.Now()
	var result domain.BatchResult

	for _, period := range s.cfg.Periods {
		if ctx.Err() != nil {
			break
		}
		result.Processed++

		items, err := s.ComputeTrending(ctx, period, s.cfg.CacheSize)
		if err != nil {
			result.Errors++
			s.logger.Error("trending period failed", "days", period, "error", err)
			continue
		}
		s.cache.SetJSON(ctx, cache.TrendingPeriodKey(period), items, s.cfg.PeriodTTL)
		result.Updated++
	}

	s.batch.finish(ctx, "trending", result, time.Since(started))
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("trending batch interrupted: %w", err)
	}
	return result, nil
}

// GetTrending serves the cached period list, computing and caching it on a miss.
func (s *TrendingService) GetTrending(ctx context.Context, windowDays, limit int) ([]domain.TrendingArticle, error) {
	if limit <= 0 || limit > s.cfg.CacheSize {
		limit = s.cfg.CacheSize
	}

	key := cache.TrendingPeriodKey(windowDays)
	var items []domain.TrendingArticle
	if !s.cache.GetJSON(ctx, key, &items) {
		var err error
		items, err = s.ComputeTrending(ctx, windowDays, s.cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		s.cache.SetJSON(ctx, key, items, s.cfg.PeriodTTL)
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// GetTrendingByRole ranks only articles targeting role; results are cached per
// (role, window, limit) with a shorter TTL.
func (s *TrendingService) GetTrendingByRole(ctx context.Context, role domain.Role, windowDays, limit int) ([]domain.TrendingArticle, error) {
	key := cache.TrendingRoleKey(role, windowDays, limit)
	var items []domain.TrendingArticle
	if s.cache.GetJSON(ctx, key, &items) {
		return items, nil
	}

	items, err := s.compute(ctx, windowDays, limit, func(a domain.Article) bool { return a.HasRole(role) })
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, key, items, s.cfg.RoleTTL)
	return items, nil
}

func (s *TrendingService) compute(ctx context.Context, windowDays, limit int, keep func(domain.Article) bool) ([]domain.TrendingArticle, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("trending window must be positive, got %d days", windowDays)
	}
	now := s.now()
	window := days(windowDays)

	candidates, err := s.articles.ArticlesInWindow(ctx, now.Add(-window), scoring.TrendingMinQuality)
	if err != nil {
		return nil, fmt.Errorf("load trending candidates: %w", err)
	}
	if keep != nil {
		filtered := candidates[:0]
		for _, a := range candidates {
			if keep(a) {
				filtered = append(filtered, a)
			}
		}
		candidates = filtered
	}

	items := scoring.RankTrending(candidates, window, limit, now)
	for i := range items {
		items[i].Excerpt = parser.Excerpt(items[i].Article.Description, parser.DefaultExcerptLength)
	}
	if items == nil {
		items = []domain.TrendingArticle{}
	}
	return items, nil
}
