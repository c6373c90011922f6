package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/ports"
)

const defaultScoringBatch = 50

// ScoringDeps wires the AI enrichment consumer.
type ScoringDeps struct {
	Articles  ports.ArticleRepository
	Provider  ports.ScoringProvider
	Cache     *cache.Layer
	Reporter  ports.Reporter
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     func() time.Time
	BatchSize int
}

// ScoringService pulls unscored articles through the external scoring provider.
type ScoringService struct {
	articles  ports.ArticleRepository
	provider  ports.ScoringProvider
	cache     *cache.Layer
	logger    *slog.Logger
	now       func() time.Time
	batchSize int
	batch     batchReporter
}

// NewScoringService constructs the scoring consumer.
func NewScoringService(deps ScoringDeps) *ScoringService {
	size := deps.BatchSize
	if size <= 0 {
		size = defaultScoringBatch
	}
	logger := componentLogger(deps.Logger, "scoring")
	return &ScoringService{
		articles:  deps.Articles,
		provider:  deps.Provider,
		cache:     deps.Cache,
		logger:    logger,
		now:       clockOrNow(deps.Clock),
		batchSize: size,
		batch:     batchReporter{reporter: deps.Reporter, metrics: deps.Metrics, logger: logger},
	}
}

// ScorePending enriches up to limit unscored articles. Provider failures are
// counted per article.
func (s *ScoringService) ScorePending(ctx context.Context, limit int) (domain.BatchResult, error) {
	const job = "scoring"
	started := time.Now()
	if limit <= 0 {
		limit = s.batchSize
	}
	if s.provider == nil {
		return domain.BatchResult{}, fmt.Errorf("scoring provider is not configured")
	}

	pending, err := s.articles.UnscoredArticles(ctx, limit)
	if err != nil {
		s.batch.failed(job, err)
		return domain.BatchResult{}, fmt.Errorf("load unscored articles: %w", err)
	}

	var result domain.BatchResult
	for _, article := range pending {
		if ctx.Err() != nil {
			break
		}
		result.Processed++

		scores, err := s.provider.Score(ctx, article)
		if err != nil {
			result.Errors++
			s.logger.Warn("score article failed", "article_id", article.ID, "error", err)
			continue
		}
		if err := s.ApplyScores(ctx, article.ID, scores); err != nil {
			result.Errors++
			s.logger.Warn("apply scores failed", "article_id", article.ID, "error", err)
			continue
		}
		result.Updated++
	}

	s.batch.finish(ctx, job, result, time.Since(started))
	return result, ctx.Err()
}

// ApplyScores stores sanitized provider output and drops the article's item cache.
func (s *ScoringService) ApplyScores(ctx context.Context, articleID string, scores domain.AIScores) error {
	if err := s.articles.ApplyScores(ctx, articleID, SanitizeScores(scores), s.now()); err != nil {
		return fmt.Errorf("apply scores: %w", err)
	}
	s.cache.Invalidate(ctx, cache.ArticleKey(articleID))
	return nil
}

// SanitizeScores clamps provider output into the ranges the ranking code assumes.
// Duplicate roles keep their highest weight; unknown skill levels are cleared.
func SanitizeScores(in domain.AIScores) domain.AIScores {
	out := domain.AIScores{
		QualityScore: clampRange(in.QualityScore, 0, 10),
		SkillLevel:   in.SkillLevel,
		IsClickbait:  in.IsClickbait,
	}
	if !out.SkillLevel.Valid() {
		out.SkillLevel = ""
	}

	byRole := map[domain.Role]float64{}
	for _, rw := range in.TargetRoles {
		role := domain.Role(strings.ToUpper(strings.TrimSpace(string(rw.Role))))
		if role == "" {
			continue
		}
		w := clampRange(rw.Weight, 0, 1)
		if prev, ok := byRole[role]; !ok || w > prev {
			byRole[role] = w
		}
	}
	for role, w := range byRole {
		out.TargetRoles = append(out.TargetRoles, domain.RoleWeight{Role: role, Weight: w})
	}
	sort.Slice(out.TargetRoles, func(i, j int) bool {
		if out.TargetRoles[i].Weight != out.TargetRoles[j].Weight {
			return out.TargetRoles[i].Weight > out.TargetRoles[j].Weight
		}
		return out.TargetRoles[i].Role < out.TargetRoles[j].Role
	})

	seen := map[string]bool{}
	for _, tag := range in.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out.Tags = append(out.Tags, tag)
	}
	return out
}

func clampRange(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
