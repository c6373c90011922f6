package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/domain"
	"FeedRanker/internal/infrastructure/kvstore"
	"FeedRanker/internal/ports"
)

var (
	testNow    = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	errBackend = errors.New("backend unavailable")
)

func fixedClock() time.Time { return testNow }

// memRepo is an in-memory article corpus, engagement log and profile store.
type memRepo struct {
	mu          sync.Mutex
	articles    map[string]domain.Article
	engagements []domain.Engagement
	profiles    map[string]domain.RoleProfile

	lastFilter  domain.ArticleFilter
	queryErr    error
	signalErrs  map[string]error
	applyErrs   map[string]error
	savedScores map[string]domain.AIScores
}

var (
	_ ports.ArticleRepository = (*memRepo)(nil)
	_ ports.EngagementStore   = (*memRepo)(nil)
	_ ports.ProfileStore      = (*memRepo)(nil)
)

func newMemRepo(articles ...domain.Article) *memRepo {
	r := &memRepo{
		articles:    map[string]domain.Article{},
		profiles:    map[string]domain.RoleProfile{},
		signalErrs:  map[string]error{},
		applyErrs:   map[string]error{},
		savedScores: map[string]domain.AIScores{},
	}
	for _, a := range articles {
		r.articles[a.ID] = a
	}
	return r
}

func (r *memRepo) GetArticle(_ context.Context, id string) (domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return a, nil
}

func (r *memRepo) QueryArticles(_ context.Context, f domain.ArticleFilter) ([]domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	if r.queryErr != nil {
		return nil, r.queryErr
	}

	var out []domain.Article
	for _, a := range r.articles {
		if a.QualityScore < f.MinQuality ||
			(f.OnlyActive && !a.IsActive) ||
			(f.ExcludeClickbait && a.IsClickbait) ||
			(f.Cursor != "" && a.ID >= f.Cursor) {
			continue
		}
		if len(f.SkillLevels) > 0 && !containsLevel(f.SkillLevels, a.SkillLevel) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].ID > out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func containsLevel(levels []domain.SkillLevel, l domain.SkillLevel) bool {
	for _, x := range levels {
		if x == l {
			return true
		}
	}
	return false
}

func (r *memRepo) ArticlesInWindow(_ context.Context, since time.Time, minQuality float64) ([]domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	var out []domain.Article
	for _, a := range r.articles {
		if a.IsActive && !a.PublishedAt.Before(since) && a.QualityScore >= minQuality {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) IncrementCounter(_ context.Context, id string, counter domain.Counter, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	var field *int64
	switch counter {
	case domain.CounterViews:
		field = &a.Views
	case domain.CounterSaves:
		field = &a.Saves
	case domain.CounterShares:
		field = &a.Shares
	default:
		return errors.New("unknown counter")
	}
	*field = max(*field+int64(delta), 0)
	r.articles[id] = a
	return nil
}

func (r *memRepo) UnscoredArticles(_ context.Context, limit int) ([]domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Article
	for _, a := range r.articles {
		if a.ScoredAt == nil && a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ApplyScores(_ context.Context, id string, s domain.AIScores, scoredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.applyErrs[id]; err != nil {
		return err
	}
	a, ok := r.articles[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	a.QualityScore = s.QualityScore
	a.TargetRoles = s.TargetRoles
	a.SkillLevel = s.SkillLevel
	a.Tags = s.Tags
	a.IsClickbait = s.IsClickbait
	a.ScoredAt = &scoredAt
	r.articles[id] = a
	r.savedScores[id] = s
	return nil
}

func (r *memRepo) SaveArticle(_ context.Context, a domain.Article) (domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles[a.ID] = a
	return a, nil
}

func (r *memRepo) UpsertView(_ context.Context, e domain.Engagement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Type = domain.EngagementView
	for i, existing := range r.engagements {
		if existing.Type == domain.EngagementView && existing.UserID == e.UserID && existing.ArticleID == e.ArticleID {
			r.engagements[i].CreatedAt = e.CreatedAt
			return nil
		}
	}
	r.engagements = append(r.engagements, e)
	return nil
}

func (r *memRepo) AppendEngagement(ctx context.Context, e domain.Engagement) error {
	if e.Type == domain.EngagementView {
		return r.UpsertView(ctx, e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engagements = append(r.engagements, e)
	return nil
}

func (r *memRepo) EngagementSignals(_ context.Context, userID string, since time.Time, types []domain.EngagementType) ([]domain.EngagementSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.signalErrs[userID]; err != nil {
		return nil, err
	}
	var out []domain.EngagementSignal
	for _, e := range r.engagements {
		if e.UserID != userID || e.CreatedAt.Before(since) || !containsType(types, e.Type) {
			continue
		}
		roles, skill := e.ArticleRoles, e.ArticleSkillLevel
		if a, ok := r.articles[e.ArticleID]; ok && len(a.TargetRoles) > 0 {
			roles, skill = a.TargetRoles, a.SkillLevel
		}
		out = append(out, domain.EngagementSignal{Type: e.Type, Roles: roles, SkillLevel: skill, CreatedAt: e.CreatedAt})
	}
	return out, nil
}

func containsType(types []domain.EngagementType, t domain.EngagementType) bool {
	if len(types) == 0 {
		return true
	}
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func (r *memRepo) ActiveUsers(_ context.Context, since time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, e := range r.engagements {
		if !e.CreatedAt.Before(since) && !seen[e.UserID] {
			seen[e.UserID] = true
			out = append(out, e.UserID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *memRepo) PurgeEngagements(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.engagements[:0]
	var n int64
	for _, e := range r.engagements {
		if e.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.engagements = kept
	return n, nil
}

func (r *memRepo) GetProfile(_ context.Context, userID string) (domain.RoleProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		return p, nil
	}
	return domain.RoleProfile{UserID: userID}, nil
}

func (r *memRepo) SaveProfile(_ context.Context, p domain.RoleProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserID] = p
	return nil
}

func (r *memRepo) count(userID, articleID string, typ domain.EngagementType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.engagements {
		if e.UserID == userID && e.ArticleID == articleID && e.Type == typ {
			n++
		}
	}
	return n
}

func (r *memRepo) article(id string) domain.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.articles[id]
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []domain.UpdateResult
	events  []domain.Engagement
	err     error
}

func (p *recordingPublisher) PublishProfileUpdated(_ context.Context, result domain.UpdateResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, result)
	return p.err
}

func (p *recordingPublisher) OnEngagement(_ context.Context, e domain.Engagement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type recordingReporter struct {
	mu      sync.Mutex
	reports []string
}

func (r *recordingReporter) PublishReport(_ context.Context, report string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return nil
}

func newTestCache() (*cache.Layer, *kvstore.MemoryStore) {
	store := kvstore.NewMemoryStore()
	return cache.NewLayer(store, time.Second, nil, nil), store
}

func hasKey(t interface{ Helper() }, store *kvstore.MemoryStore, key string) bool {
	t.Helper()
	_, err := store.Get(context.Background(), key)
	return err == nil
}

func article(id string, published time.Time, quality float64, roles ...domain.RoleWeight) domain.Article {
	return domain.Article{
		ID:           id,
		Title:        "Article " + id,
		Description:  "<p>About " + id + "</p>",
		URL:          "https://example.org/" + id,
		PublishedAt:  published,
		QualityScore: quality,
		TargetRoles:  roles,
		SkillLevel:   domain.SkillIntermediate,
		IsActive:     true,
	}
}
