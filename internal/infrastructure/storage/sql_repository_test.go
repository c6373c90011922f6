package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedRanker/internal/domain"
)

var testNow = time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *SQLRepository {
	t.Helper()

	ctx := context.Background()
	db, err := Open(ctx, DialectSQLite, filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewSQLRepository(db, DialectSQLite)
	repo.now = func() time.Time { return testNow }
	require.NoError(t, repo.Migrate(ctx))
	require.NoError(t, repo.Migrate(ctx), "migrate must be re-runnable")
	return repo
}

func scored() *time.Time {
	t := testNow.Add(-time.Hour)
	return &t
}

func seedArticle(t *testing.T, repo *SQLRepository, a domain.Article) domain.Article {
	t.Helper()

	if a.URL == "" {
		a.URL = "https://example.org/" + a.ID
	}
	if a.ScoredAt == nil {
		a.ScoredAt = scored()
	}
	saved, err := repo.SaveArticle(context.Background(), a)
	require.NoError(t, err)
	return saved
}

func TestPostgresPlaceholders(t *testing.T) {
	t.Parallel()

	repo := NewSQLRepository(nil, DialectPostgres)
	query, args, err := repo.sb.Select("id").From("articles").Where(sq.Eq{"id": "x"}).Where(sq.Lt{"views": 3}).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM articles WHERE id = $1 AND views < $2", query)
	assert.Equal(t, []any{"x", 3}, args)
}

func TestSaveArticleUpsertsByURL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	first := seedArticle(t, repo, domain.Article{ID: "01A", Title: "v1", URL: "https://example.org/a", IsActive: true})
	second, err := repo.SaveArticle(ctx, domain.Article{Title: "v2", URL: "https://example.org/a", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetArticle(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)

	_, err = repo.GetArticle(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrArticleNotFound)
}

func TestUpsertViewKeepsSingleRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	seedArticle(t, repo, domain.Article{ID: "01A", IsActive: true})

	view := domain.Engagement{UserID: "u1", ArticleID: "01A", CreatedAt: testNow.Add(-time.Hour)}
	require.NoError(t, repo.UpsertView(ctx, view))
	view.CreatedAt = testNow
	require.NoError(t, repo.UpsertView(ctx, view))

	n, err := repo.CountEngagements(ctx, "u1", "01A", domain.EngagementView)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	signals, err := repo.EngagementSignals(ctx, "u1", testNow.Add(-time.Minute), nil)
	require.NoError(t, err)
	require.Len(t, signals, 1, "view timestamp must be refreshed")

	for i := 0; i < 2; i++ {
		require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{
			UserID: "u1", ArticleID: "01A", Type: domain.EngagementShare, CreatedAt: testNow,
		}))
	}
	n, err = repo.CountEngagements(ctx, "u1", "01A", domain.EngagementShare)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIncrementCounter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	seedArticle(t, repo, domain.Article{ID: "01A", IsActive: true, Saves: 1})

	require.NoError(t, repo.IncrementCounter(ctx, "01A", domain.CounterViews, 1))
	require.NoError(t, repo.IncrementCounter(ctx, "01A", domain.CounterViews, 1))
	require.NoError(t, repo.IncrementCounter(ctx, "01A", domain.CounterSaves, -1))
	require.NoError(t, repo.IncrementCounter(ctx, "01A", domain.CounterSaves, -1))

	got, err := repo.GetArticle(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
	assert.Equal(t, int64(0), got.Saves)

	assert.ErrorIs(t, repo.IncrementCounter(ctx, "missing", domain.CounterViews, 1), domain.ErrArticleNotFound)
	assert.Error(t, repo.IncrementCounter(ctx, "01A", domain.Counter("likes"), 1))
}

func TestQueryArticlesFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	seedArticle(t, repo, domain.Article{ID: "01A", IsActive: true, QualityScore: 8, SkillLevel: domain.SkillBeginner, PublishedAt: testNow.Add(-4 * time.Hour)})
	seedArticle(t, repo, domain.Article{ID: "01B", IsActive: true, QualityScore: 9, SkillLevel: domain.SkillAdvanced, PublishedAt: testNow.Add(-3 * time.Hour)})
	seedArticle(t, repo, domain.Article{ID: "01C", IsActive: true, QualityScore: 7, SkillLevel: domain.SkillIntermediate, PublishedAt: testNow.Add(-2 * time.Hour)})
	seedArticle(t, repo, domain.Article{ID: "01D", IsActive: true, QualityScore: 6.9, PublishedAt: testNow.Add(-time.Hour)})
	seedArticle(t, repo, domain.Article{ID: "01E", IsActive: false, QualityScore: 9, PublishedAt: testNow.Add(-time.Hour)})
	seedArticle(t, repo, domain.Article{ID: "01F", IsActive: true, QualityScore: 9, IsClickbait: true, PublishedAt: testNow.Add(-time.Hour)})

	base := domain.ArticleFilter{MinQuality: 7, OnlyActive: true, ExcludeClickbait: true}

	got, err := repo.QueryArticles(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []string{"01C", "01B", "01A"}, ids(got))

	withSkill := base
	withSkill.SkillLevels = domain.SkillBeginner.CompatibleLevels()
	got, err = repo.QueryArticles(ctx, withSkill)
	require.NoError(t, err)
	assert.Equal(t, []string{"01C", "01A"}, ids(got))

	paged := base
	paged.Cursor = "01C"
	paged.Limit = 1
	got, err = repo.QueryArticles(ctx, paged)
	require.NoError(t, err)
	assert.Equal(t, []string{"01B"}, ids(got))
}

func TestEngagementSignalsJoin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	seedArticle(t, repo, domain.Article{
		ID: "01A", IsActive: true,
		TargetRoles: []domain.RoleWeight{{Role: domain.RoleBackend, Weight: 0.9}},
		SkillLevel:  domain.SkillAdvanced,
	})

	snapshot := []domain.RoleWeight{{Role: domain.RoleFrontend, Weight: 1}}
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{
		UserID: "u1", ArticleID: "01A", Type: domain.EngagementSave,
		ArticleRoles: snapshot, ArticleSkillLevel: domain.SkillBeginner, CreatedAt: testNow,
	}))
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{
		UserID: "u1", ArticleID: "gone", Type: domain.EngagementShare,
		ArticleRoles: snapshot, ArticleSkillLevel: domain.SkillBeginner, CreatedAt: testNow,
	}))
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{
		UserID: "u1", ArticleID: "01A", Type: domain.EngagementRate, Rating: 4, CreatedAt: testNow,
	}))
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{
		UserID: "u1", ArticleID: "01A", Type: domain.EngagementSave, CreatedAt: testNow.Add(-60 * 24 * time.Hour),
	}))

	signals, err := repo.EngagementSignals(ctx, "u1", testNow.Add(-30*24*time.Hour), domain.SignalTypes())
	require.NoError(t, err)
	require.Len(t, signals, 2)

	byType := map[domain.EngagementType]domain.EngagementSignal{}
	for _, s := range signals {
		byType[s.Type] = s
	}
	assert.Equal(t, domain.RoleBackend, byType[domain.EngagementSave].Roles[0].Role)
	assert.Equal(t, domain.SkillAdvanced, byType[domain.EngagementSave].SkillLevel)
	assert.Equal(t, domain.RoleFrontend, byType[domain.EngagementShare].Roles[0].Role)
	assert.Equal(t, domain.SkillBeginner, byType[domain.EngagementShare].SkillLevel)
}

func TestActiveUsersAndPurge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	old := testNow.Add(-100 * 24 * time.Hour)
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{UserID: "u2", ArticleID: "a", Type: domain.EngagementSave, CreatedAt: testNow}))
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{UserID: "u1", ArticleID: "a", Type: domain.EngagementShare, CreatedAt: testNow}))
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{UserID: "u1", ArticleID: "b", Type: domain.EngagementSave, CreatedAt: testNow}))
	require.NoError(t, repo.AppendEngagement(ctx, domain.Engagement{UserID: "u3", ArticleID: "a", Type: domain.EngagementSave, CreatedAt: old}))

	users, err := repo.ActiveUsers(ctx, testNow.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users)

	n, err := repo.PurgeEngagements(ctx, testNow.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestProfileAndUserRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	empty, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", empty.UserID)
	assert.Empty(t, empty.Roles)

	profile := domain.RoleProfile{
		UserID:    "u1",
		Roles:     []domain.RoleWeight{{Role: domain.RoleData, Weight: 0.7}, {Role: domain.RoleBackend, Weight: 0.3}},
		UpdatedAt: testNow,
	}
	require.NoError(t, repo.SaveProfile(ctx, profile))
	got, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, profile, got)

	_, err = repo.GetUser(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	require.NoError(t, repo.SaveUser(ctx, domain.User{ID: "u1", Topics: []string{"go"}, SkillLevel: domain.SkillAdvanced}))
	user, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, user.Topics)
	assert.Equal(t, domain.SkillAdvanced, user.SkillLevel)
}

func TestApplyScores(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	_, err := repo.SaveArticle(ctx, domain.Article{ID: "01A", URL: "https://example.org/raw", IsActive: true})
	require.NoError(t, err)

	pending, err := repo.UnscoredArticles(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"01A"}, ids(pending))

	require.NoError(t, repo.ApplyScores(ctx, "01A", domain.AIScores{
		QualityScore: 8.5,
		TargetRoles:  []domain.RoleWeight{{Role: domain.RoleDevOps, Weight: 1}},
		SkillLevel:   domain.SkillIntermediate,
		Tags:         []string{"kubernetes"},
	}, testNow))

	got, err := repo.GetArticle(ctx, "01A")
	require.NoError(t, err)
	assert.Equal(t, 8.5, got.QualityScore)
	assert.Equal(t, []string{"kubernetes"}, got.Tags)
	require.NotNil(t, got.ScoredAt)

	pending, err = repo.UnscoredArticles(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, repo.ApplyScores(ctx, "missing", domain.AIScores{}, testNow), domain.ErrArticleNotFound)
}

func ids(articles []domain.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.ID
	}
	return out
}

// CountEngagements counts events of one type for a (user, article) pair.
func (r *SQLRepository) CountEngagements(ctx context.Context, userID, articleID string, typ domain.EngagementType) (int, error) {
	row, err := r.queryRow(ctx, r.sb.Select("COUNT(*)").From("engagements").Where(sq.Eq{
		"user_id":    userID,
		"article_id": articleID,
		"type":       string(typ),
	}))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count engagements: %w", err)
	}
	return n, nil
}
