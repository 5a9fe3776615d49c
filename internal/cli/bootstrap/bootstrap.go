// Package bootstrap assembles the tracker's stores and services from
// configuration. It is shared by every CLI command.
package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"github.com/issuedesk/tracker/internal/core/policy"
	"github.com/issuedesk/tracker/internal/core/service"
	"github.com/issuedesk/tracker/internal/infrastructure/db/mongo"
	"github.com/issuedesk/tracker/internal/infrastructure/db/redis"
	"github.com/issuedesk/tracker/internal/infrastructure/db/sqlstore"
	"github.com/issuedesk/tracker/internal/infrastructure/queue"
	"github.com/issuedesk/tracker/internal/pkg/config"
	"github.com/issuedesk/tracker/pkg/logger"
)

// Init loads configuration and initialises the process logger.
func Init(ctx context.Context) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "issue-tracker",
	})
	return cfg, log, nil
}

// OpenDatabase connects to the relational store described by cfg.
func OpenDatabase(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := sqlstore.Connect(ctx, sqlstore.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.URL,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		Debug:        cfg.Database.Debug,
	}, logger.Component("sqlstore"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("database connected")
	return db, nil
}

// App holds the wired services and the connections backing them.
type App struct {
	DB          *gorm.DB
	MongoClient *mongodrv.Client
	Mongo       *mongodrv.Database
	Redis       *goredis.Client

	AccountRepo *sqlstore.AccountRepository
	Accounts    *service.AccountService
	Tickets     *service.TicketService
	Dispatcher  *queue.Dispatcher
}

// New wires services over db. MongoDB and Redis are connected only when
// configured; the activity dispatcher is started when MongoDB is present.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log zerolog.Logger) (*App, error) {
	pol, err := policy.New()
	if err != nil {
		return nil, fmt.Errorf("failed to build access policy: %w", err)
	}

	app := &App{DB: db}
	accountRepo := sqlstore.NewAccountRepository(db)
	tx := sqlstore.NewTransactor(db)
	app.AccountRepo = accountRepo

	var opts []service.TicketOption
	opts = append(opts, service.WithPageSize(cfg.PageSize))

	if cfg.Mongo.URI != "" {
		client, mdb, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, fmt.Errorf("failed to connect mongodb: %w", err)
		}
		app.MongoClient, app.Mongo = client, mdb

		activity := mongo.NewActivityRepository(mdb)
		if err := activity.EnsureIndexes(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to ensure activity indexes")
		}
		app.Dispatcher = queue.NewDispatcher(cfg.ActivityWorkers, activity, logger.Component("activity"))
		app.Dispatcher.Start()
		opts = append(opts, service.WithActivity(app.Dispatcher, activity))
		log.Info().Str("database", cfg.Mongo.Database).Msg("activity trail enabled")
	}

	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			app.closeStores(ctx, log)
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		app.Redis = rdb
		opts = append(opts, service.WithIdempotency(redis.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotent ticket creation enabled")
	}

	app.Accounts = service.NewAccountService(
		accountRepo, sqlstore.NewTokenRepository(db), tx, pol, cfg.PageSize, logger.Component("accounts"),
	)
	app.Tickets = service.NewTicketService(
		sqlstore.NewTicketRepository(db), accountRepo, tx, pol, logger.Component("tickets"), opts...,
	)
	return app, nil
}

// Close drains the dispatcher and releases every connection.
func (a *App) Close(ctx context.Context, log zerolog.Logger) {
	a.closeStores(ctx, log)
	if err := sqlstore.Close(a.DB); err != nil {
		log.Error().Err(err).Msg("failed to close database")
	}
}

func (a *App) closeStores(ctx context.Context, log zerolog.Logger) {
	if a.Dispatcher != nil {
		if err := a.Dispatcher.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("activity dispatcher did not drain")
		}
	}
	if a.MongoClient != nil {
		if err := mongo.Disconnect(a.MongoClient); err != nil {
			log.Error().Err(err).Msg("failed to disconnect mongodb")
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis")
		}
	}
}
