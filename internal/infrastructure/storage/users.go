package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"FeedRanker/internal/domain"
)

// GetUser returns the reader attributes used for ranking.
func (r *SQLRepository) GetUser(ctx context.Context, id string) (domain.User, error) {
	row, err := r.queryRow(ctx, r.sb.Select("id", "topics", "skill_level").From("users").Where(sq.Eq{"id": id}))
	if err != nil {
		return domain.User{}, err
	}

	var (
		u      domain.User
		topics string
		skill  string
	)
	err = row.Scan(&u.ID, &topics, &skill)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	u.Topics = decodeJSON[[]string](topics)
	u.SkillLevel = domain.SkillLevel(skill)
	return u, nil
}

// SaveUser upserts reader attributes; account management lives outside this service.
func (r *SQLRepository) SaveUser(ctx context.Context, u domain.User) error {
	_, err := r.exec(ctx, r.sb.Insert("users").
		Columns("id", "topics", "skill_level").
		Values(u.ID, encodeJSON(u.Topics), string(u.SkillLevel)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET topics = excluded.topics, skill_level = excluded.skill_level`))
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetProfile returns the stored role profile, or an empty one.
func (r *SQLRepository) GetProfile(ctx context.Context, userID string) (domain.RoleProfile, error) {
	row, err := r.queryRow(ctx, r.sb.Select("roles", "updated_at").From("user_role_profiles").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return domain.RoleProfile{}, err
	}

	var (
		roles     string
		updatedAt sql.NullInt64
	)
	err = row.Scan(&roles, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoleProfile{UserID: userID}, nil
	}
	if err != nil {
		return domain.RoleProfile{}, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return domain.RoleProfile{
		UserID:    userID,
		Roles:     decodeJSON[[]domain.RoleWeight](roles),
		UpdatedAt: fromMillis(updatedAt),
	}, nil
}

// SaveProfile replaces the user's role profile.
func (r *SQLRepository) SaveProfile(ctx context.Context, p domain.RoleProfile) error {
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}
	_, err := r.exec(ctx, r.sb.Insert("user_role_profiles").
		Columns("user_id", "roles", "updated_at").
		Values(p.UserID, encodeJSON(p.Roles), updatedAt.UnixMilli()).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET roles = excluded.roles, updated_at = excluded.updated_at`))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
