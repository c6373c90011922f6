package scoring

import (
	"math"
	"sort"
	"time"

	"FeedRanker/internal/domain"
)

const (
	gravity        = 1.8
	gravityOffsetH = 2.0

	// TrendingMinQuality is the quality floor for trending candidates.
	TrendingMinQuality = 5.0
)

// Gravity is the time-decayed popularity of an article hoursOld hours after publication.
func Gravity(views, saves, shares int64, hoursOld float64) float64 {
	if hoursOld < 0 || math.IsNaN(hoursOld) {
		hoursOld = 0
	}
	raw := float64(views) + 3*float64(saves) + 5*float64(shares)
	return raw / math.Pow(hoursOld+gravityOffsetH, gravity)
}

// HoursOld is the age of the article at now, never negative.
func HoursOld(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0
	}
	return math.Max(now.Sub(publishedAt).Hours(), 0)
}

// RankTrending scores the candidates at now and returns the top limit, highest first.
// Candidates outside the window, inactive or below the quality floor are skipped.
func RankTrending(candidates []domain.Article, window time.Duration, limit int, now time.Time) []domain.TrendingArticle {
	since := now.Add(-window)

	ranked := make([]domain.TrendingArticle, 0, len(candidates))
	for _, a := range candidates {
		if !a.IsActive || a.QualityScore < TrendingMinQuality {
			continue
		}
		if a.PublishedAt.IsZero() || a.PublishedAt.Before(since) {
			continue
		}
		ranked = append(ranked, domain.TrendingArticle{
			Article: a,
			Score:   Gravity(a.Views, a.Saves, a.Shares, HoursOld(a.PublishedAt, now)),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Article.ID > ranked[j].Article.ID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
