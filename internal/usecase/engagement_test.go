package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/infrastructure/kvstore"
)

func newRecorder(t *testing.T) (*EngagementService, *memRepo, *kvstore.MemoryStore, *recordingPublisher) {
	t.Helper()

	repo := newMemRepo(article("a1", testNow.Add(-time.Hour), 8, domain.RoleWeight{Role: domain.RoleData, Weight: 0.9}))
	layer, store := newTestCache()
	observer := &recordingPublisher{}
	svc := NewEngagementService(EngagementDeps{
		Articles:    repo,
		Engagements: repo,
		Cache:       layer,
		Observer:    observer,
		Clock:       fixedClock,
	})
	return svc, repo, store, observer
}

func seedCache(t *testing.T, store *kvstore.MemoryStore, keys ...string) {
	t.Helper()
	for _, key := range keys {
		require.NoError(t, store.Set(context.Background(), key, []byte(`{}`), time.Minute))
	}
}

func TestRecordViewIsIdempotentPerPair(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, store, observer := newRecorder(t)
	seedCache(t, store, cache.FeedFirstPageKey("u1"))

	require.NoError(t, svc.RecordView(ctx, "u1", "a1"))
	require.NoError(t, svc.RecordView(ctx, "u1", "a1"))

	assert.Equal(t, 1, repo.count("u1", "a1", domain.EngagementView))
	assert.Equal(t, int64(2), repo.article("a1").Views)
	assert.True(t, hasKey(t, store, cache.FeedFirstPageKey("u1")), "views must not invalidate the feed")
	assert.Len(t, observer.events, 2)
}

func TestRecordSaveInvalidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, store, _ := newRecorder(t)
	seedCache(t, store, cache.FeedFirstPageKey("u1"), cache.ArticleKey("a1"), cache.FeedFirstPageKey("u2"))

	require.NoError(t, svc.RecordSave(ctx, "u1", "a1"))

	assert.Equal(t, int64(1), repo.article("a1").Saves)
	assert.False(t, hasKey(t, store, cache.FeedFirstPageKey("u1")))
	assert.False(t, hasKey(t, store, cache.ArticleKey("a1")))
	assert.True(t, hasKey(t, store, cache.FeedFirstPageKey("u2")))

	saved := repo.engagements[0]
	assert.Equal(t, domain.EngagementSave, saved.Type)
	assert.Equal(t, domain.RoleData, saved.ArticleRoles[0].Role)
	assert.Equal(t, testNow, saved.CreatedAt)
}

func TestRecordShareAppendsEveryEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, store, _ := newRecorder(t)
	seedCache(t, store, cache.FeedFirstPageKey("u1"))

	require.NoError(t, svc.RecordShare(ctx, "u1", "a1"))
	require.NoError(t, svc.RecordShare(ctx, "u1", "a1"))

	assert.Equal(t, 2, repo.count("u1", "a1", domain.EngagementShare))
	assert.Equal(t, int64(2), repo.article("a1").Shares)
	assert.False(t, hasKey(t, store, cache.FeedFirstPageKey("u1")))
}

func TestRecordUnsaveNeverGoesNegative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, _, _ := newRecorder(t)

	require.NoError(t, svc.RecordSave(ctx, "u1", "a1"))
	require.NoError(t, svc.RecordUnsave(ctx, "u1", "a1"))
	require.NoError(t, svc.RecordUnsave(ctx, "u1", "a1"))

	assert.Equal(t, int64(0), repo.article("a1").Saves)
	assert.Equal(t, 2, repo.count("u1", "a1", domain.EngagementUnsave))
}

func TestRecordRate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, store, _ := newRecorder(t)
	seedCache(t, store, cache.ArticleKey("a1"))

	assert.ErrorIs(t, svc.RecordRate(ctx, "u1", "a1", 0), domain.ErrInvalidEngagement)
	assert.ErrorIs(t, svc.RecordRate(ctx, "u1", "a1", 6), domain.ErrInvalidEngagement)

	require.NoError(t, svc.RecordRate(ctx, "u1", "a1", 4))
	require.Len(t, repo.engagements, 1)
	assert.Equal(t, 4, repo.engagements[0].Rating)
	assert.True(t, hasKey(t, store, cache.ArticleKey("a1")))
	a := repo.article("a1")
	assert.Zero(t, a.Views+a.Saves+a.Shares)
}

func TestRecordRejectsUnknownInput(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, _, _ := newRecorder(t)

	assert.ErrorIs(t, svc.RecordSave(ctx, "", "a1"), domain.ErrInvalidEngagement)
	assert.ErrorIs(t, svc.RecordView(ctx, "u1", "missing"), domain.ErrArticleNotFound)
	assert.Empty(t, repo.engagements)
}

func TestObserverFailureDoesNotFailRecording(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, _, observer := newRecorder(t)
	observer.err = errBackend

	require.NoError(t, svc.RecordSave(ctx, "u1", "a1"))
	assert.Equal(t, int64(1), repo.article("a1").Saves)
}

func TestPurgeExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, repo, _, _ := newRecorder(t)
	repo.engagements = []domain.Engagement{
		{UserID: "u1", ArticleID: "a1", Type: domain.EngagementSave, CreatedAt: testNow.Add(-91 * 24 * time.Hour)},
		{UserID: "u1", ArticleID: "a1", Type: domain.EngagementSave, CreatedAt: testNow.Add(-89 * 24 * time.Hour)},
	}

	n, err := svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, repo.engagements, 1)
}
