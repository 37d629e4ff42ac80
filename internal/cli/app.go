package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/cache"
	adapterHTTP "github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-tracker/internal/config"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/services"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/workers"
	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
)

type storage struct {
	name     string
	db       *sqlx.DB
	habits   domain.HabitRepository
	checkIns domain.CheckInRepository
	users    domain.UserRepository
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		db, err := repository.OpenPostgres(ctx, cfg.Database.Driver, cfg.Database.DSN(), repository.PostgresOptions{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if _, err := repository.Migrate(ctx, db, repository.DialectPostgres); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &storage{
			name:     config.DriverPostgres,
			db:       db,
			habits:   repository.NewPostgresHabitRepository(db),
			checkIns: repository.NewPostgresCheckInRepository(db),
			users:    repository.NewPostgresUserRepository(db),
		}, nil

	case config.DriverSQLite:
		db, err := repository.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{
			name:     config.DriverSQLite,
			db:       db,
			habits:   repository.NewSQLiteHabitRepository(db),
			checkIns: repository.NewSQLiteCheckInRepository(db),
			users:    repository.NewSQLiteUserRepository(db),
		}, nil

	case config.DriverMemory:
		store := repository.NewMemoryStore(repository.Seed{})
		return &storage{
			name:     config.DriverMemory,
			habits:   store.Habits(),
			checkIns: store.CheckIns(),
			users:    store.Users(),
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

// App is the fully wired server: storage, optional Redis, the streak worker
// and the HTTP router.
type App struct {
	Router *gin.Engine
	Worker *workers.StreakWorker

	store *storage
	rdb   *redis.Client
}

// NewApp wires every component. The streak worker runs until ctx is done.
// Redis is optional: when it is disabled or unreachable the app runs without
// the habit cache and the report cache, and rate limits locally.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	logger.Info("storage ready", "driver", store.name)

	app := &App{store: store}

	if cfg.Redis.Enabled {
		rdb, err := cache.NewRedisClient(ctx, cache.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("redis unavailable, running without cache", "err", err)
		} else {
			app.rdb = rdb
		}
	}

	habits := store.habits
	var analyticsOpts []services.AnalyticsOption
	var reportCache *cache.ReportCache

	if app.rdb != nil {
		habits = repository.NewCachedHabitRepository(habits, app.rdb, cfg.Redis.HabitTTL)
		reportCache = cache.NewReportCache(app.rdb, cfg.Redis.ReportTTL)
		analyticsOpts = append(analyticsOpts, services.WithReportCache(reportCache))
	}

	loc := cfg.Location()
	analyticsOpts = append(analyticsOpts, services.WithDefaultLocation(loc))

	app.Worker = workers.NewStreakWorker(habits, store.checkIns, loc, workers.WithQueueSize(cfg.Worker.QueueSize))
	app.Worker.Start(ctx)

	habitService := services.NewHabitService(habits)
	checkInService := services.NewCheckInService(store.checkIns, habits, app.Worker)
	analyticsService := services.NewAnalyticsService(habits, store.checkIns, analyticsOpts...)
	statsService := services.NewStatsService(habits, store.checkIns)
	authService := services.NewAuthService(store.users)
	tokenService := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, store.users)

	deps := adapterHTTP.RouterDependencies{
		AuthHandler:      adapterHTTP.NewAuthHandler(authService, tokenService),
		HabitHandler:     adapterHTTP.NewHabitHandler(habitService),
		CheckInHandler:   adapterHTTP.NewCheckInHandler(checkInService, loc),
		AnalyticsHandler: adapterHTTP.NewAnalyticsHandler(analyticsService),
		StatsHandler:     adapterHTTP.NewStatsHandler(statsService, loc),
		Tokens:           tokenService,
		StorageName:      store.name,
		Redis:            app.rdb,
		RateLimit: adapterHTTP.RateLimitOptions{
			Enabled:  cfg.RateLimit.Enabled,
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		},
		StartTime: startTime,
	}
	if store.db != nil {
		deps.Storage = store.db
	}
	if reportCache != nil {
		deps.ReportCache = reportCache
	}

	app.Router = adapterHTTP.NewRouter(deps)
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.rdb != nil {
		errs = append(errs, a.rdb.Close())
	}
	if a.store.db != nil {
		errs = append(errs, a.store.db.Close())
	}
	return errors.Join(errs...)
}
