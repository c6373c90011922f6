package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"FeedRanker/internal/domain"
)

var engagementColumns = []string{
	"id", "user_id", "article_id", "type", "rating",
	"article_roles", "article_tags", "article_skill_level", "created_at",
}

func (r *SQLRepository) engagementInsert(e domain.Engagement) sq.InsertBuilder {
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}
	var rating sql.NullInt64
	if e.Type == domain.EngagementRate {
		rating = sql.NullInt64{Int64: int64(e.Rating), Valid: true}
	}

	return r.sb.Insert("engagements").
		Columns(engagementColumns...).
		Values(
			e.ID, e.UserID, e.ArticleID, string(e.Type), rating,
			encodeJSON(e.ArticleRoles), encodeJSON(e.ArticleTags), string(e.ArticleSkillLevel),
			e.CreatedAt.UnixMilli(),
		)
}

// UpsertView keeps one VIEW row per (user, article); repeat views refresh its timestamp.
func (r *SQLRepository) UpsertView(ctx context.Context, e domain.Engagement) error {
	e.Type = domain.EngagementView
	b := r.engagementInsert(e).Suffix(`ON CONFLICT (user_id, article_id) WHERE type = 'VIEW' DO UPDATE
		SET created_at = excluded.created_at,
		    article_roles = excluded.article_roles,
		    article_tags = excluded.article_tags,
		    article_skill_level = excluded.article_skill_level`)

	if _, err := r.exec(ctx, b); err != nil {
		return fmt.Errorf("upsert view: %w", err)
	}
	return nil
}

// AppendEngagement stores a new event row.
func (r *SQLRepository) AppendEngagement(ctx context.Context, e domain.Engagement) error {
	if e.Type == domain.EngagementView {
		return r.UpsertView(ctx, e)
	}
	if _, err := r.exec(ctx, r.engagementInsert(e)); err != nil {
		return fmt.Errorf("append engagement: %w", err)
	}
	return nil
}

// EngagementSignals joins a user's events in the window with the current article
// metadata. The denormalized snapshot is used when the article is gone or unscored.
func (r *SQLRepository) EngagementSignals(ctx context.Context, userID string, since time.Time, types []domain.EngagementType) ([]domain.EngagementSignal, error) {
	b := r.sb.Select(
		"e.type", "e.article_roles", "e.article_skill_level", "e.created_at",
		"a.target_roles", "a.skill_level",
	).
		From("engagements e").
		LeftJoin("articles a ON a.id = e.article_id").
		Where(sq.Eq{"e.user_id": userID}).
		Where(sq.GtOrEq{"e.created_at": since.UnixMilli()}).
		OrderBy("e.created_at ASC")

	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		b = b.Where(sq.Eq{"e.type": names})
	}

	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("query engagement signals: %w", err)
	}

	var result []domain.EngagementSignal
	for rows.Next() {
		var (
			typ, snapRoles, snapSkill string
			createdAt                 int64
			liveRoles, liveSkill      sql.NullString
		)
		if err := rows.Scan(&typ, &snapRoles, &snapSkill, &createdAt, &liveRoles, &liveSkill); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan engagement signal: %w", err)
		}

		roles := decodeJSON[[]domain.RoleWeight](liveRoles.String)
		if len(roles) == 0 {
			roles = decodeJSON[[]domain.RoleWeight](snapRoles)
		}
		skill := domain.SkillLevel(liveSkill.String)
		if !skill.Valid() {
			skill = domain.SkillLevel(snapSkill)
		}

		result = append(result, domain.EngagementSignal{
			Type:       domain.EngagementType(typ),
			Roles:      roles,
			SkillLevel: skill,
			CreatedAt:  time.UnixMilli(createdAt).UTC(),
		})
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// ActiveUsers lists users with any engagement since the given instant.
func (r *SQLRepository) ActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.query(ctx, r.sb.Select("DISTINCT user_id").
		From("engagements").
		Where(sq.GtOrEq{"created_at": since.UnixMilli()}).
		OrderBy("user_id"))
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return ids, nil
}

// PurgeEngagements deletes events older than before.
func (r *SQLRepository) PurgeEngagements(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.exec(ctx, r.sb.Delete("engagements").Where(sq.Lt{"created_at": before.UnixMilli()}))
	if err != nil {
		return 0, fmt.Errorf("purge engagements: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return n, nil
}
