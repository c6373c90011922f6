package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FeedRanker/internal/cache"
	"FeedRanker/internal/config"
	"FeedRanker/internal/infrastructure/events"
	"FeedRanker/internal/infrastructure/kvstore"
	"FeedRanker/internal/infrastructure/llm"
	"FeedRanker/internal/infrastructure/ml"
	"FeedRanker/internal/infrastructure/scheduler"
	"FeedRanker/internal/infrastructure/storage"
	"FeedRanker/internal/infrastructure/telegram"
	"FeedRanker/internal/logging"
	"FeedRanker/internal/metrics"
	"FeedRanker/internal/policy"
	"FeedRanker/internal/ports"
	"FeedRanker/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db        *sql.DB
	repo      *storage.SQLRepository
	redis     *kvstore.RedisStore
	publisher *events.Publisher

	Feed       *usecase.FeedService
	Engagement *usecase.EngagementService
	Roles      *usecase.RoleService
	Trending   *usecase.TrendingService
	Scoring    *usecase.ScoringService
	Users      ports.UserStore

	scheduler *usecase.Scheduler
}

// New connects the adapters and builds every service. Redis and NATS are optional:
// an unreachable Redis degrades to the in-process store, an unreachable NATS disables events.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger.With("component", "app")}

	dialect := storage.Dialect(cfg.Database.Driver)
	db, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.db = db
	a.repo = storage.NewSQLRepository(db, dialect)
	a.Users = a.repo

	m := metrics.NewMetrics()
	layer := cache.NewLayer(a.cacheStore(ctx), cfg.Redis.Timeout, baseLogger, m)

	pol, err := policy.DefaultRegistry().Resolve(cfg.Feed.Policy)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var (
		profilePublisher ports.ProfilePublisher
		observer         ports.ActivityObserver
	)
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(events.Config{URL: cfg.NATS.URL, SubjectPrefix: cfg.NATS.SubjectPrefix}, baseLogger)
		if err != nil {
			a.logger.Warn("events disabled", "error", err)
		} else {
			a.publisher = pub
			profilePublisher = pub
			observer = pub
		}
	}

	var reporter ports.Reporter
	notifier := telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	if notifier.Configured() {
		reporter = notifier
	}

	a.Feed = usecase.NewFeedService(usecase.FeedDeps{
		Articles: a.repo,
		Profiles: a.repo,
		Cache:    layer,
		Policy:   pol,
		Metrics:  m,
		Logger:   baseLogger,
		Config:   usecase.FeedConfig{TTL: cfg.Feed.TTL, ArticleTTL: cfg.Feed.ArticleTTL},
	})
	a.Engagement = usecase.NewEngagementService(usecase.EngagementDeps{
		Articles:      a.repo,
		Engagements:   a.repo,
		Cache:         layer,
		Observer:      observer,
		Metrics:       m,
		Logger:        baseLogger,
		RetentionDays: cfg.Engagement.RetentionDays,
	})
	a.Roles = usecase.NewRoleService(usecase.RoleDeps{
		Engagements: a.repo,
		Profiles:    a.repo,
		Cache:       layer,
		Publisher:   profilePublisher,
		Reporter:    reporter,
		Metrics:     m,
		Logger:      baseLogger,
		Config: usecase.RoleConfig{
			WindowDays:  cfg.Roles.WindowDays,
			Parallelism: cfg.Roles.Parallelism,
			LockTTL:     cfg.Roles.LockTTL,
		},
	})
	a.Trending = usecase.NewTrendingService(usecase.TrendingDeps{
		Articles: a.repo,
		Cache:    layer,
		Reporter: reporter,
		Metrics:  m,
		Logger:   baseLogger,
		Config: usecase.TrendingConfig{
			PeriodTTL: cfg.Trending.PeriodTTL,
			RoleTTL:   cfg.Trending.RoleTTL,
			CacheSize: cfg.Trending.CacheSize,
			Periods:   cfg.Trending.Periods,
		},
	})
	a.Scoring = usecase.NewScoringService(usecase.ScoringDeps{
		Articles:  a.repo,
		Provider:  a.scoringProvider(),
		Cache:     layer,
		Reporter:  reporter,
		Metrics:   m,
		Logger:    baseLogger,
		BatchSize: cfg.ML.BatchSize,
	})

	driver := scheduler.NewCronScheduler(cfg.Scheduler.Location(), baseLogger)
	a.scheduler = usecase.NewScheduler(driver, usecase.Jobs{
		Trending:   a.Trending,
		Roles:      a.Roles,
		Scoring:    a.Scoring,
		Engagement: a.Engagement,
	}, usecase.ScheduleConfig{
		Trending:  cfg.Scheduler.Trending,
		Roles:     cfg.Scheduler.Roles,
		Scoring:   cfg.Scheduler.Scoring,
		Retention: cfg.Scheduler.Retention,
	}, baseLogger)

	return a, nil
}

func (a *Application) cacheStore(ctx context.Context) ports.CacheStore {
	if a.cfg.Redis.Addr == "" {
		a.logger.Info("redis not configured, using in-process cache")
		return kvstore.NewMemoryStore()
	}
	store, err := kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
		Timeout:  a.cfg.Redis.Timeout,
	})
	if err != nil {
		a.logger.Warn("redis unavailable, using in-process cache", "addr", a.cfg.Redis.Addr, "error", err)
		return kvstore.NewMemoryStore()
	}
	a.redis = store
	return store
}

func (a *Application) scoringProvider() ports.ScoringProvider {
	switch a.cfg.ML.Provider {
	case config.ProviderChatGPT:
		if a.cfg.ChatGPT.APIKey == "" {
			a.logger.Warn("chatgpt scoring selected without api key")
			return nil
		}
		return llm.NewChatGPTClient(a.cfg.ChatGPT)
	default:
		if a.cfg.ML.InferenceURL == "" {
			a.logger.Warn("ml inference url not configured, scoring disabled")
			return nil
		}
		return ml.NewClient(a.cfg.ML.InferenceURL, a.cfg.ML.APIKey)
	}
}

// Migrate creates the schema if it does not exist.
func (a *Application) Migrate(ctx context.Context) error {
	return a.repo.Migrate(ctx)
}

// Run starts the batch scheduler and the metrics endpoint and blocks until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	var srv *http.Server
	serveErr := make(chan error, 1)
	if a.cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{Addr: a.cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		runErr = fmt.Errorf("metrics server: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler stop", "error", err)
	}
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("metrics shutdown", "error", err)
		}
	}
	a.logger.Info("stopped")
	return runErr
}

// Close releases database, cache and event connections.
func (a *Application) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
