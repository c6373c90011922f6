package ports

import (
	"context"
	"errors"
	"time"

	"FeedRanker/internal/domain"
)

// ErrCacheMiss is returned by CacheStore.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// ArticleRepository exposes the article corpus.
type ArticleRepository interface {
	GetArticle(ctx context.Context, id string) (domain.Article, error)
	QueryArticles(ctx context.Context, filter domain.ArticleFilter) ([]domain.Article, error)
	ArticlesInWindow(ctx context.Context, since time.Time, minQuality float64) ([]domain.Article, error)
	IncrementCounter(ctx context.Context, id string, counter domain.Counter, delta int) error
	UnscoredArticles(ctx context.Context, limit int) ([]domain.Article, error)
	ApplyScores(ctx context.Context, id string, scores domain.AIScores, scoredAt time.Time) error
	SaveArticle(ctx context.Context, article domain.Article) (domain.Article, error)
}

// EngagementStore is the engagement event log.
type EngagementStore interface {
	UpsertView(ctx context.Context, e domain.Engagement) error
	AppendEngagement(ctx context.Context, e domain.Engagement) error
	EngagementSignals(ctx context.Context, userID string, since time.Time, types []domain.EngagementType) ([]domain.EngagementSignal, error)
	ActiveUsers(ctx context.Context, since time.Time) ([]string, error)
	PurgeEngagements(ctx context.Context, before time.Time) (int64, error)
}

// UserStore reads reader attributes.
type UserStore interface {
	GetUser(ctx context.Context, id string) (domain.User, error)
}

// ProfileStore persists dynamic role profiles. A missing profile yields an empty one.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.RoleProfile, error)
	SaveProfile(ctx context.Context, profile domain.RoleProfile) error
}

// CacheStore is the raw key-value contract of the cache technology.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) (int, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL returns remaining seconds, or -1 when the key has no expiry or is absent.
	TTL(ctx context.Context, key string) (int64, error)
}

// ProfilePublisher emits role-profile changes to the real-time channel.
type ProfilePublisher interface {
	PublishProfileUpdated(ctx context.Context, result domain.UpdateResult) error
}

// ActivityObserver receives every recorded engagement (streaks, achievements).
type ActivityObserver interface {
	OnEngagement(ctx context.Context, e domain.Engagement) error
}

// Reporter streams batch summaries to operators.
type Reporter interface {
	PublishReport(ctx context.Context, report string) error
}

// ScoringProvider supplies AI enrichment for an article.
type ScoringProvider interface {
	Score(ctx context.Context, article domain.Article) (domain.AIScores, error)
}

// Scheduler controls when batch jobs execute.
type Scheduler interface {
	Schedule(name, spec string, job func(context.Context)) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
