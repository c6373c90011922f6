package domain

import (
	"errors"
	"time"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Role is a category label used to match user interest to article subject.
type Role string

const (
	RoleFrontend Role = "FRONTEND"
	RoleBackend  Role = "BACKEND"
	RoleDevOps   Role = "DEVOPS"
	RoleMobile   Role = "MOBILE"
	RoleData     Role = "DATA"
	RoleSecurity Role = "SECURITY"
)

// RoleWeight pairs a role with its share in a profile or article.
type RoleWeight struct {
	Role   Role    `json:"role"`
	Weight float64 `json:"weight"`
}

// SkillLevel describes the expected reader experience.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
)

// Valid reports whether s is one of the known levels.
func (s SkillLevel) Valid() bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced:
		return true
	}
	return false
}

// Rank maps the level onto 1..3; unknown levels map to 0.
func (s SkillLevel) Rank() int {
	switch s {
	case SkillBeginner:
		return 1
	case SkillIntermediate:
		return 2
	case SkillAdvanced:
		return 3
	}
	return 0
}

// CompatibleLevels widens a reader's level into the range of levels shown in the feed.
func (s SkillLevel) CompatibleLevels() []SkillLevel {
	switch s {
	case SkillBeginner:
		return []SkillLevel{SkillBeginner, SkillIntermediate}
	case SkillIntermediate:
		return []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced}
	case SkillAdvanced:
		return []SkillLevel{SkillIntermediate, SkillAdvanced}
	}
	return nil
}

// Article is a core entity ingested from RSS and enriched by the AI scoring provider.
type Article struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
	PublishedAt  time.Time    `json:"publishedAt"`
	QualityScore float64      `json:"qualityScore"`
	TargetRoles  []RoleWeight `json:"targetRoles"`
	SkillLevel   SkillLevel   `json:"skillLevel"`
	Tags         []string     `json:"tags"`
	IsClickbait  bool         `json:"isClickbait"`
	Views        int64        `json:"views"`
	Saves        int64        `json:"saves"`
	Shares       int64        `json:"shares"`
	IsActive     bool         `json:"isActive"`
	ScoredAt     *time.Time   `json:"scoredAt,omitempty"`
}

// HasRole reports whether the article targets the given role with a positive weight.
func (a Article) HasRole(role Role) bool {
	for _, rw := range a.TargetRoles {
		if rw.Role == role && rw.Weight > 0 {
			return true
		}
	}
	return false
}

// AIScores is the enrichment supplied by the external scoring provider.
type AIScores struct {
	QualityScore float64      `json:"qualityScore"`
	TargetRoles  []RoleWeight `json:"targetRoles"`
	SkillLevel   SkillLevel   `json:"skillLevel"`
	Tags         []string     `json:"tags"`
	IsClickbait  bool         `json:"isClickbait"`
}

// Counter names one of the article engagement counters.
type Counter string

const (
	CounterViews  Counter = "views"
	CounterSaves  Counter = "saves"
	CounterShares Counter = "shares"
)

// ArticleFilter narrows the corpus query used by feed assembly.
type ArticleFilter struct {
	MinQuality       float64
	OnlyActive       bool
	ExcludeClickbait bool
	SkillLevels      []SkillLevel
	Cursor           string
	Limit            int
}

// RankedArticle is one feed entry with its relevance score.
type RankedArticle struct {
	Article Article `json:"article"`
	Score   int     `json:"score"`
	Excerpt string  `json:"excerpt,omitempty"`
}

// FeedPage is an ordered, possibly cached, slice of the personalized feed.
type FeedPage struct {
	Items      []RankedArticle `json:"items"`
	HasMore    bool            `json:"hasMore"`
	NextCursor string          `json:"nextCursor,omitempty"`
	Cached     bool            `json:"-"`
}

// TrendingArticle carries the gravity score computed at evaluation time.
type TrendingArticle struct {
	Article Article `json:"article"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt,omitempty"`
}
