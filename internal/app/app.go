package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"BrokenPromises/internal/api"
	"BrokenPromises/internal/channel"
	"BrokenPromises/internal/config"
	"BrokenPromises/internal/domain"
	"BrokenPromises/internal/infrastructure/analysis"
	"BrokenPromises/internal/infrastructure/channels"
	"BrokenPromises/internal/infrastructure/datefinder"
	"BrokenPromises/internal/infrastructure/scheduler"
	"BrokenPromises/internal/infrastructure/sentences"
	"BrokenPromises/internal/infrastructure/storage"
	"BrokenPromises/internal/infrastructure/telegram"
	"BrokenPromises/internal/infrastructure/worker"
	"BrokenPromises/internal/logging"
	"BrokenPromises/internal/ports"
	"BrokenPromises/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	store     *storage.SQLRepository
	channels  *channel.Set
	extractor *usecase.DateReferenceExtractor
	filter    *usecase.ResultFilter
	cache     *usecase.CollectionCache
	notifier  ports.Notifier
	inline    *worker.Inline
	pool      *worker.Pool
}

// New opens the store and resolves every configured component.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := channel.NewRegistry()
	channels.Register(registry)
	set, err := registry.Resolve(cfg.ChannelSpecs(), nil, baseLogger.With("component", "channel"))
	if err != nil {
		return nil, fmt.Errorf("resolve channels: %w", err)
	}

	var finder ports.DateFinder
	switch cfg.Analysis.Mode {
	case config.AnalysisRemote:
		finder = analysis.NewClient(cfg.Analysis.Endpoint, cfg.Analysis.APIKey, nil)
	case config.AnalysisBuiltin:
		finder = datefinder.New()
	default:
		finder = datefinder.NewSearcher()
	}
	splitter, err := sentences.NewEnglish()
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	workerLogger := baseLogger.With("component", "worker")
	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		store:     store,
		channels:  set,
		extractor: usecase.NewDateReferenceExtractor(finder, splitter),
		filter:    usecase.NewResultFilter(baseLogger.With("component", "filter")),
		cache:     usecase.NewCollectionCache(store, cfg.Cache.Window()),
		notifier:  notifier,
		inline:    worker.NewInline(cfg.Worker.LockDir, workerLogger),
		pool: worker.NewPool(worker.PoolOptions{
			Concurrency: cfg.Worker.Concurrency,
			QueueSize:   cfg.Worker.QueueSize,
			LockDir:     cfg.Worker.LockDir,
		}, workerLogger),
	}, nil
}

// Close releases the store.
func (a *Application) Close() error {
	return a.store.Close()
}

// Store exposes the persistent store for read-only commands.
func (a *Application) Store() ports.Store {
	return a.store
}

// Channels returns the configured channels in order.
func (a *Application) Channels() *channel.Set {
	return a.channels
}

func (a *Application) collectorDeps() usecase.CollectorDeps {
	return usecase.CollectorDeps{
		Channels:  a.channels.Channels(),
		Store:     a.store,
		Extractor: a.extractor,
		Filter:    a.filter,
		Cache:     a.cache,
		Logger:    a.logger.With("component", "collector"),
		Strict:    a.cfg.Collector.Strict,
	}
}

func lockKey(scope domain.Scope) string {
	return "collect-" + scope.String()
}

// Collect runs one collection synchronously.
func (a *Application) Collect(ctx context.Context, req usecase.CollectRequest) ([]domain.Article, domain.RunReport, error) {
	run := usecase.NewCollectArticles(a.collectorDeps(), req)

	var articles []domain.Article
	err := a.inline.Invoke(ctx, ports.Job{
		Name:    usecase.CollectorCollectArticles,
		LockKey: lockKey(req.Scope),
		Run: func(ctx context.Context) error {
			var runErr error
			articles, runErr = run.Run(ctx)
			var persistErr *domain.PersistenceError
			if errors.As(runErr, &persistErr) {
				a.logger.Warn("persisting collection failed, retrying once", "error", runErr)
				articles, runErr = run.RetryPersist(ctx)
			}
			return runErr
		},
	})
	report, _ := run.Report()
	return articles, report, err
}

// EnqueueSearch schedules a stored collection that notifies recipient.
func (a *Application) EnqueueSearch(recipient string, scope domain.Scope) (string, error) {
	run := usecase.NewCollectAndNotify(a.collectorDeps(), usecase.CollectRequest{Scope: scope, UseStorage: true}, a.notifier, recipient)
	return a.pool.Enqueue(ports.Job{
		Name:    usecase.CollectorCollectAndNotify,
		LockKey: lockKey(scope),
		Run: func(ctx context.Context) error {
			_, err := run.Run(ctx)
			return err
		},
	})
}

func (a *Application) enqueueScheduled(_ context.Context, scope domain.Scope) error {
	run := usecase.NewCollectArticles(a.collectorDeps(), usecase.CollectRequest{Scope: scope, UseStorage: true})
	_, err := a.pool.Enqueue(ports.Job{
		Name:    usecase.CollectorCollectArticles,
		LockKey: lockKey(scope),
		Run: func(ctx context.Context) error {
			_, err := run.Run(ctx)
			return err
		},
	})
	return err
}

// Refresh recomputes references of the stored articles of scope and saves
// the ones that still qualify.
func (a *Application) Refresh(ctx context.Context, scope domain.Scope, scrape bool) ([]domain.Article, error) {
	stored, err := a.store.GetArticles(ctx, ports.ArticleQuery{Scope: &scope})
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}

	refresh := usecase.NewRefreshArticles(a.channels, a.extractor, a.filter, a.logger.With("component", "refresh"))
	refreshed, err := refresh.Run(ctx, stored, scrape)
	if err != nil {
		return nil, err
	}
	for _, article := range refreshed {
		if _, _, err := a.store.UpsertArticle(ctx, article, scope); err != nil {
			return nil, &domain.PersistenceError{Op: "upsert " + article.URL, Err: err}
		}
	}
	return refreshed, nil
}

// Serve runs the HTTP API, the worker pool and the optional scheduler until
// ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	a.pool.Start(ctx)

	var sched *usecase.Scheduler
	if a.cfg.Scheduler.Enabled {
		sched = usecase.NewScheduler(scheduler.NewTickerScheduler(a.cfg.Scheduler.Interval), a.enqueueScheduled,
			a.cfg.Scheduler.Location(), a.logger.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	srv := &http.Server{
		Addr: a.cfg.HTTP.Addr,
		Handler: api.NewHandler(api.Dependencies{
			Store:  a.store,
			Jobs:   a.pool,
			Search: a.EnqueueSearch,
			Logger: a.logger.With("component", "api"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			a.logger.Warn("scheduler shutdown", "error", err)
		}
	}
	if err := a.pool.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("worker shutdown", "error", err)
	}
	return serveErr
}
