package storage

import (
	"context"
	"fmt"
)

// Timestamps are unix milliseconds so the same schema and queries run on Postgres and SQLite.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL UNIQUE,
		published_at BIGINT,
		quality_score DOUBLE PRECISION,
		target_roles TEXT NOT NULL DEFAULT '[]',
		skill_level TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		is_clickbait BOOLEAN NOT NULL DEFAULT FALSE,
		views BIGINT NOT NULL DEFAULT 0,
		saves BIGINT NOT NULL DEFAULT 0,
		shares BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		scored_at BIGINT,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS articles_published_idx ON articles (published_at)`,
	`CREATE INDEX IF NOT EXISTS articles_unscored_idx ON articles (scored_at, id)`,

	`CREATE TABLE IF NOT EXISTS engagements (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		article_id TEXT NOT NULL,
		type TEXT NOT NULL,
		rating INTEGER,
		article_roles TEXT NOT NULL DEFAULT '[]',
		article_tags TEXT NOT NULL DEFAULT '[]',
		article_skill_level TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS engagements_single_view_idx ON engagements (user_id, article_id) WHERE type = 'VIEW'`,
	`CREATE INDEX IF NOT EXISTS engagements_user_time_idx ON engagements (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS engagements_time_idx ON engagements (created_at)`,

	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		topics TEXT NOT NULL DEFAULT '[]',
		skill_level TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS user_role_profiles (
		user_id TEXT PRIMARY KEY,
		roles TEXT NOT NULL DEFAULT '[]',
		updated_at BIGINT NOT NULL
	)`,
}

// Migrate creates tables and indexes; it is safe to run repeatedly.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
