package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedRanker/internal/domain"
)

func TestGravityExample(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 38.77, Gravity(100, 10, 1, 0), 0.01)
}

func TestGravityStrictlyDecreasesWithAge(t *testing.T) {
	t.Parallel()

	prev := Gravity(40, 4, 2, 0)
	for h := 1.0; h <= 24*30; h += 7.5 {
		score := Gravity(40, 4, 2, h)
		require.Less(t, score, prev, "hours %.1f", h)
		prev = score
	}
}

func TestGravityClampsNegativeAge(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Gravity(10, 0, 0, 0), Gravity(10, 0, 0, -5))
}

func TestRankTrending(t *testing.T) {
	t.Parallel()

	window := 7 * day
	candidates := []domain.Article{
		{ID: "01A", IsActive: true, QualityScore: 8, PublishedAt: now.Add(-2 * time.Hour), Views: 10},
		{ID: "01B", IsActive: true, QualityScore: 6, PublishedAt: now.Add(-30 * time.Hour), Views: 500, Saves: 40},
		{ID: "01C", IsActive: false, QualityScore: 9, PublishedAt: now.Add(-time.Hour), Views: 900},
		{ID: "01D", IsActive: true, QualityScore: 4.9, PublishedAt: now.Add(-time.Hour), Views: 900},
		{ID: "01E", IsActive: true, QualityScore: 9, PublishedAt: now.Add(-8 * day), Views: 900},
		{ID: "01F", IsActive: true, QualityScore: 7, PublishedAt: now.Add(-3 * time.Hour), Views: 0},
	}

	ranked := RankTrending(candidates, window, 2, now)
	require.Len(t, ranked, 2)
	assert.Equal(t, "01B", ranked[0].Article.ID)
	assert.Equal(t, "01A", ranked[1].Article.ID)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)

	all := RankTrending(candidates, window, 0, now)
	require.Len(t, all, 3)
	assert.Equal(t, "01F", all[2].Article.ID)
}

func TestRankTrendingRecomputesAgeAtEvaluation(t *testing.T) {
	t.Parallel()

	article := domain.Article{ID: "01A", IsActive: true, QualityScore: 8, PublishedAt: now.Add(-time.Hour), Views: 100}

	early := RankTrending([]domain.Article{article}, day, 1, now)
	later := RankTrending([]domain.Article{article}, day, 1, now.Add(5*time.Hour))
	require.Len(t, early, 1)
	require.Len(t, later, 1)
	assert.Greater(t, early[0].Score, later[0].Score)
}
