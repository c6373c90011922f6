package domain

import (
	"errors"
	"time"
)

var ErrInvalidEngagement = errors.New("invalid engagement")

// EngagementType enumerates user interactions with an article.
type EngagementType string

const (
	EngagementView   EngagementType = "VIEW"
	EngagementSave   EngagementType = "SAVE"
	EngagementShare  EngagementType = "SHARE"
	EngagementRate   EngagementType = "RATE"
	EngagementUnsave EngagementType = "UNSAVE"
)

// SignalWeight is the contribution of one event to role and skill aggregation.
// Only VIEW, SAVE and SHARE carry signal.
func (t EngagementType) SignalWeight() float64 {
	switch t {
	case EngagementView:
		return 1
	case EngagementSave:
		return 3
	case EngagementShare:
		return 5
	}
	return 0
}

// SignalTypes lists the engagement types that feed role computation.
func SignalTypes() []EngagementType {
	return []EngagementType{EngagementView, EngagementSave, EngagementShare}
}

// Engagement is one recorded interaction. Article metadata is captured at write time
// so aggregation does not depend on later article mutation.
type Engagement struct {
	ID                string         `json:"id"`
	UserID            string         `json:"userId"`
	ArticleID         string         `json:"articleId"`
	Type              EngagementType `json:"type"`
	Rating            int            `json:"rating,omitempty"`
	ArticleRoles      []RoleWeight   `json:"articleRoles"`
	ArticleTags       []string       `json:"articleTags"`
	ArticleSkillLevel SkillLevel     `json:"articleSkillLevel"`
	CreatedAt         time.Time      `json:"createdAt"`
}

// EngagementSignal is an engagement joined with its article's current roles.
// Roles fall back to the denormalized snapshot when the article is gone.
type EngagementSignal struct {
	Type       EngagementType
	Roles      []RoleWeight
	SkillLevel SkillLevel
	CreatedAt  time.Time
}
