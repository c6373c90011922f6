package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"FeedRanker/internal/domain"
)

var articleColumns = []string{
	"id", "title", "description", "url", "published_at", "quality_score",
	"target_roles", "skill_level", "tags", "is_clickbait",
	"views", "saves", "shares", "is_active", "scored_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (domain.Article, error) {
	var (
		a           domain.Article
		publishedAt sql.NullInt64
		quality     sql.NullFloat64
		roles       string
		skill       string
		tags        string
		scoredAt    sql.NullInt64
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.URL, &publishedAt, &quality,
		&roles, &skill, &tags, &a.IsClickbait,
		&a.Views, &a.Saves, &a.Shares, &a.IsActive, &scoredAt,
	)
	if err != nil {
		return domain.Article{}, err
	}

	a.PublishedAt = fromMillis(publishedAt)
	a.QualityScore = quality.Float64
	a.TargetRoles = decodeJSON[[]domain.RoleWeight](roles)
	a.SkillLevel = domain.SkillLevel(skill)
	a.Tags = decodeJSON[[]string](tags)
	if scoredAt.Valid {
		t := fromMillis(scoredAt)
		a.ScoredAt = &t
	}
	return a, nil
}

func (r *SQLRepository) collectArticles(ctx context.Context, b sq.SelectBuilder) ([]domain.Article, error) {
	rows, err := r.query(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}

	var result []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan article: %w", err)
		}
		result = append(result, a)
	}
	if err := closeRows(rows, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// GetArticle loads a single article by id.
func (r *SQLRepository) GetArticle(ctx context.Context, id string) (domain.Article, error) {
	row, err := r.queryRow(ctx, r.sb.Select(articleColumns...).From("articles").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.Article{}, err
	}
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	if err != nil {
		return domain.Article{}, fmt.Errorf("get article %s: %w", id, err)
	}
	return a, nil
}

// QueryArticles returns candidates newest first, then by quality.
func (r *SQLRepository) QueryArticles(ctx context.Context, f domain.ArticleFilter) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles").
		Where(sq.GtOrEq{"quality_score": f.MinQuality}).
		OrderBy("published_at DESC NULLS LAST", "quality_score DESC", "id DESC")

	if f.OnlyActive {
		b = b.Where(sq.Eq{"is_active": true})
	}
	if f.ExcludeClickbait {
		b = b.Where(sq.Eq{"is_clickbait": false})
	}
	if len(f.SkillLevels) > 0 {
		levels := make([]string, len(f.SkillLevels))
		for i, l := range f.SkillLevels {
			levels[i] = string(l)
		}
		b = b.Where(sq.Eq{"skill_level": levels})
	}
	if f.Cursor != "" {
		b = b.Where(sq.Lt{"id": f.Cursor})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}

	return r.collectArticles(ctx, b)
}

// ArticlesInWindow returns active articles published since the given instant.
func (r *SQLRepository) ArticlesInWindow(ctx context.Context, since time.Time, minQuality float64) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"is_active": true}).
		Where(sq.GtOrEq{"published_at": since.UnixMilli()}).
		Where(sq.GtOrEq{"quality_score": minQuality}).
		OrderBy("published_at DESC", "id DESC")

	return r.collectArticles(ctx, b)
}

func counterColumn(c domain.Counter) (string, error) {
	switch c {
	case domain.CounterViews, domain.CounterSaves, domain.CounterShares:
		return string(c), nil
	}
	return "", fmt.Errorf("unknown counter %q", c)
}

// IncrementCounter adds delta to a counter without letting it drop below zero.
func (r *SQLRepository) IncrementCounter(ctx context.Context, id string, counter domain.Counter, delta int) error {
	col, err := counterColumn(counter)
	if err != nil {
		return err
	}

	expr := sq.Expr(fmt.Sprintf("CASE WHEN %s + ? < 0 THEN 0 ELSE %s + ? END", col, col), delta, delta)
	res, err := r.exec(ctx, r.sb.Update("articles").Set(col, expr).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("increment %s: %w", col, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// UnscoredArticles lists active articles the AI provider has not enriched yet.
func (r *SQLRepository) UnscoredArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	b := r.sb.Select(articleColumns...).From("articles").
		Where(sq.Eq{"scored_at": nil}).
		Where(sq.Eq{"is_active": true}).
		OrderBy("id ASC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return r.collectArticles(ctx, b)
}

// ApplyScores stores provider enrichment.
func (r *SQLRepository) ApplyScores(ctx context.Context, id string, s domain.AIScores, scoredAt time.Time) error {
	res, err := r.exec(ctx, r.sb.Update("articles").
		Set("quality_score", s.QualityScore).
		Set("target_roles", encodeJSON(s.TargetRoles)).
		Set("skill_level", string(s.SkillLevel)).
		Set("tags", encodeJSON(s.Tags)).
		Set("is_clickbait", s.IsClickbait).
		Set("scored_at", scoredAt.UnixMilli()).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("apply scores: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

// SaveArticle upserts by url, the article's identity key, and returns the stored id.
func (r *SQLRepository) SaveArticle(ctx context.Context, a domain.Article) (domain.Article, error) {
	if a.URL == "" {
		return domain.Article{}, fmt.Errorf("article url is required")
	}
	if a.ID == "" {
		a.ID = newID()
	}

	var quality any
	if a.ScoredAt != nil || a.QualityScore != 0 {
		quality = a.QualityScore
	}
	var scoredAt sql.NullInt64
	if a.ScoredAt != nil {
		scoredAt = toMillis(*a.ScoredAt)
	}

	b := r.sb.Insert("articles").
		Columns(append(append([]string{}, articleColumns...), "created_at")...).
		Values(
			a.ID, a.Title, a.Description, a.URL, toMillis(a.PublishedAt), quality,
			encodeJSON(a.TargetRoles), string(a.SkillLevel), encodeJSON(a.Tags), a.IsClickbait,
			a.Views, a.Saves, a.Shares, a.IsActive, scoredAt,
			r.now().UnixMilli(),
		).
		Suffix(`ON CONFLICT (url) DO UPDATE
			SET title = excluded.title,
			    description = excluded.description,
			    published_at = excluded.published_at,
			    is_active = excluded.is_active
			RETURNING id`)

	row, err := r.queryRow(ctx, b)
	if err != nil {
		return domain.Article{}, err
	}
	if err := row.Scan(&a.ID); err != nil {
		return domain.Article{}, fmt.Errorf("upsert article: %w", err)
	}
	return a, nil
}
