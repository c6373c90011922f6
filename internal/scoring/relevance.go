// Package scoring holds the pure ranking arithmetic: relevance, trending gravity and
// role-profile aggregation. Nothing here performs I/O or reads the clock.
package scoring

import (
	"math"
	"strings"
	"time"

	"FeedRanker/internal/domain"
)

const (
	roleWeight       = 0.40
	tagWeight        = 0.30
	freshnessWeight  = 0.20
	engagementWeight = 0.10

	day = 24 * time.Hour
)

// RelevanceInput is everything the scorer looks at for one (user, article) pair.
type RelevanceInput struct {
	Roles   []domain.RoleWeight
	Topics  []string
	Article domain.Article
}

// Relevance returns the 0..100 ranking value of an article for a reader at instant now.
func Relevance(in RelevanceInput, now time.Time) int {
	sum := roleWeight*RoleAlignment(in.Roles, in.Article.TargetRoles) +
		tagWeight*TagMatch(in.Topics, in.Article.Tags) +
		freshnessWeight*Freshness(in.Article.PublishedAt, now) +
		engagementWeight*EngagementScore(in.Article.Views, in.Article.Saves)

	score := int(math.Round(100 * sum))
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// RoleAlignment sums userWeight*articleWeight over shared roles, capped at 1.
func RoleAlignment(user, article []domain.RoleWeight) float64 {
	if len(user) == 0 || len(article) == 0 {
		return 0
	}

	articleWeights := make(map[domain.Role]float64, len(article))
	for _, rw := range article {
		articleWeights[rw.Role] = clamp01(rw.Weight)
	}

	var total float64
	for _, rw := range user {
		if w, ok := articleWeights[rw.Role]; ok {
			total += clamp01(rw.Weight) * w
		}
	}
	return math.Min(total, 1)
}

// TagMatch counts topics that fuzzily match any tag and divides by the larger set size.
func TagMatch(topics, tags []string) float64 {
	if len(topics) == 0 || len(tags) == 0 {
		return 0
	}

	lowered := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			lowered = append(lowered, tag)
		}
	}

	matches := 0
	for _, topic := range topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		for _, tag := range lowered {
			if strings.Contains(tag, topic) || strings.Contains(topic, tag) {
				matches++
				break
			}
		}
	}

	denominator := max(len(topics), len(tags))
	return float64(matches) / float64(denominator)
}

// Freshness is a step function on article age. A zero publish date is neutral.
func Freshness(publishedAt, now time.Time) float64 {
	if publishedAt.IsZero() {
		return 0.5
	}

	age := now.Sub(publishedAt)
	switch {
	case age <= 7*day:
		return 1.0
	case age <= 14*day:
		return 0.8
	case age <= 30*day:
		return 0.5
	default:
		return 0.2
	}
}

// EngagementScore blends saturated view and save counts.
func EngagementScore(views, saves int64) float64 {
	v := math.Min(float64(max(views, 0))/1000, 1)
	s := math.Min(float64(max(saves, 0))/100, 1)
	return v*0.4 + s*0.6
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
