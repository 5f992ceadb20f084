package cli

import (
	"context"
	"errors"
	"fmt"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/config"
	"budget/internal/currency"
	"budget/internal/log"
	"budget/internal/services"
	"budget/internal/storage"
)

// App is the wired object graph shared by the commands.
type App struct {
	Config *config.Config
	Logger *log.Logger

	Repo   *storage.SQLiteRepository
	Rates  *currency.RateCache
	Events *amqp.Client // nil when AMQP is disabled or unreachable

	Months       *services.MonthService
	Templates    *services.TemplateService
	Transactions *services.TransactionService
	Categories   *services.CategoryService
	Rollover     *services.MonthRollover

	cacheManager *cache.Manager
}

// NewApp opens storage and wires every service from cfg. AMQP and the cache
// are optional: an unreachable broker is logged and events are disabled.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository at %s: %w", cfg.SQLiteDBPath, err)
	}
	app := &App{Config: cfg, Logger: logger, Repo: repo}

	gw := services.SQLiteGateways(repo)
	if cfg.CacheEnabled {
		store := cache.NewMemoryStore(cfg.CacheMaxEntries)
		app.cacheManager = cache.NewManager(logger)
		app.cacheManager.Register(store)
		app.cacheManager.StartCleanup(cfg.CacheCleanupInterval)
		gw = services.CachedGateways(storage.NewCachedRepository(repo, store, logger))
	}

	app.Rates = currency.NewRateCache(
		currency.NewHTTPRateSource(cfg.ExchangeRateURL, cfg.ExchangeRateTimeout),
		currency.WithFallback(cfg.ExchangeRateFallback),
		currency.WithLogger(logger),
	)
	normalizer := currency.NewNormalizer(currency.NewConverter(app.Rates, currency.Tolerant), cfg.CurrencyBackfillUSD)

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, month events disabled", log.FieldError, err)
		} else {
			app.Events = client
			events = client
		}
	}

	materializer := services.NewMaterializer(gw, cfg.MaterializeConcurrency, logger)
	app.Months = services.NewMonthService(gw, materializer, events, logger)
	app.Templates = services.NewTemplateService(gw, normalizer, logger)
	app.Transactions = services.NewTransactionService(gw, app.Months, normalizer, logger)
	app.Categories = services.NewCategoryService(gw, logger)

	rolloverCfg := services.DefaultRolloverConfig()
	rolloverCfg.Interval = cfg.RolloverInterval
	app.Rollover = services.NewMonthRollover(app.Months, rolloverCfg, logger)

	return app, nil
}

// Close releases the broker connection, the cache janitor and the database.
func (a *App) Close() error {
	var errs []error
	if a.cacheManager != nil {
		a.cacheManager.Stop()
	}
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if a.Repo != nil {
		if err := a.Repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
