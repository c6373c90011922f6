package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/parser"
	"FeedRanker/internal/policy"
	"FeedRanker/internal/ports"
	"FeedRanker/internal/scoring"
)

// FeedMinQuality is the quality floor of personalized feed candidates.
const FeedMinQuality = 7.0

// FeedConfig tunes feed assembly caching.
type FeedConfig struct {
	TTL           time.Duration
	ArticleTTL    time.Duration
	ExcerptLength int
}

// FeedDeps wires the adapters used by feed assembly.
type FeedDeps struct {
	Articles ports.ArticleRepository
	Profiles ports.ProfileStore
	Cache    *cache.Layer
	Policy   policy.Policy
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
	Clock    func() time.Time
	Config   FeedConfig
}

// FeedOptions is one page request.
type FeedOptions struct {
	Limit  int
	Cursor string
}

// FeedService assembles and caches personalized feed pages.
type FeedService struct {
	articles ports.ArticleRepository
	profiles ports.ProfileStore
	cache    *cache.Layer
	policy   policy.Policy
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
	cfg      FeedConfig
}

// NewFeedService constructs the feed coordinator.
func NewFeedService(deps FeedDeps) *FeedService {
	cfg := deps.Config
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.ArticleTTL <= 0 {
		cfg.ArticleTTL = time.Hour
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = parser.DefaultExcerptLength
	}
	p := deps.Policy
	if p == nil {
		p = policy.NewOpen()
	}
	return &FeedService{
		articles: deps.Articles,
		profiles: deps.Profiles,
		cache:    deps.Cache,
		policy:   p,
		metrics:  deps.Metrics,
		logger:   componentLogger(deps.Logger, "feed"),
		now:      clockOrNow(deps.Clock),
		cfg:      cfg,
	}
}

// GetPersonalizedFeed returns one page of the feed. A nil user gets the unscored,
// uncached recency feed. Only corpus query failures are returned as errors.
func (s *FeedService) GetPersonalizedFeed(ctx context.Context, user *domain.User, opts FeedOptions) (domain.FeedPage, error) {
	started := time.Now()
	limit := s.policy.PageSize(opts.Limit)
	cacheable := user != nil && opts.Cursor == ""

	if cacheable {
		var cached domain.FeedPage
		if s.cache.GetJSON(ctx, cache.FeedFirstPageKey(user.ID), &cached) {
			if page, ok := fitCachedPage(cached, limit); ok {
				s.metrics.RecordFeed("cache", time.Since(started).Seconds())
				return page, nil
			}
		}
	}

	filter := domain.ArticleFilter{
		MinQuality:       FeedMinQuality,
		OnlyActive:       true,
		ExcludeClickbait: true,
		Cursor:           opts.Cursor,
		Limit:            s.policy.Candidates(limit),
	}
	if user != nil && user.SkillLevel.Valid() {
		filter.SkillLevels = user.SkillLevel.CompatibleLevels()
	}

	candidates, err := s.articles.QueryArticles(ctx, filter)
	if err != nil {
		return domain.FeedPage{}, fmt.Errorf("query feed candidates: %w", err)
	}

	if user == nil {
		items := make([]domain.RankedArticle, 0, min(limit, len(candidates)))
		for _, a := range candidates[:min(limit, len(candidates))] {
			items = append(items, s.ranked(a, 0))
		}
		s.metrics.RecordFeed("anonymous", time.Since(started).Seconds())
		return newPage(items, limit), nil
	}

	roles := s.userRoles(ctx, user.ID)
	now := s.now()
	items := make([]domain.RankedArticle, 0, len(candidates))
	for _, a := range candidates {
		score := scoring.Relevance(scoring.RelevanceInput{Roles: roles, Topics: user.Topics, Article: a}, now)
		items = append(items, s.ranked(a, score))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	if len(items) > limit {
		items = items[:limit]
	}

	page := newPage(items, limit)
	if cacheable {
		s.cache.SetJSON(ctx, cache.FeedFirstPageKey(user.ID), page, s.cfg.TTL)
	}
	s.metrics.RecordFeed("computed", time.Since(started).Seconds())
	return page, nil
}

// GetArticle returns a single article through the item cache.
func (s *FeedService) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	key := cache.ArticleKey(id)
	var article domain.Article
	if s.cache.GetJSON(ctx, key, &article) {
		return article, nil
	}

	article, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article: %w", err)
	}
	s.cache.SetJSON(ctx, key, article, s.cfg.ArticleTTL)
	return article, nil
}

// userRoles degrades to an empty profile; ranking then leans on tags and freshness.
func (s *FeedService) userRoles(ctx context.Context, userID string) []domain.RoleWeight {
	if s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("load role profile failed, ranking without roles", "user_id", userID, "error", err)
		return nil
	}
	return profile.Roles
}

func (s *FeedService) ranked(a domain.Article, score int) domain.RankedArticle {
	return domain.RankedArticle{
		Article: a,
		Score:   score,
		Excerpt: parser.Excerpt(a.Description, s.cfg.ExcerptLength),
	}
}

func newPage(items []domain.RankedArticle, limit int) domain.FeedPage {
	page := domain.FeedPage{Items: items, HasMore: len(items) == limit && limit > 0}
	if page.HasMore {
		page.NextCursor = items[len(items)-1].Article.ID
	}
	return page
}

// fitCachedPage serves a cached first page for a request of a possibly different size.
// A cached page shorter than the request only fits when nothing follows it.
func fitCachedPage(cached domain.FeedPage, limit int) (domain.FeedPage, bool) {
	switch {
	case len(cached.Items) == limit:
	case len(cached.Items) > limit:
		cached = newPage(cached.Items[:limit], limit)
	case cached.HasMore:
		return domain.FeedPage{}, false
	}
	cached.Cached = true
	return cached, true
}
