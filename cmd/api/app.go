package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jordanlanch/backoffice/config"
	"github.com/jordanlanch/backoffice/pkg/api"
	"github.com/jordanlanch/backoffice/pkg/api/handlers"
	"github.com/jordanlanch/backoffice/pkg/cache"
	"github.com/jordanlanch/backoffice/pkg/crm"
	"github.com/jordanlanch/backoffice/pkg/dashboard"
	"github.com/jordanlanch/backoffice/pkg/database"
	"github.com/jordanlanch/backoffice/pkg/events"
	"github.com/jordanlanch/backoffice/pkg/export"
	"github.com/jordanlanch/backoffice/pkg/jobs"
	"github.com/jordanlanch/backoffice/pkg/logger"
	"github.com/jordanlanch/backoffice/pkg/metrics"
	"github.com/jordanlanch/backoffice/pkg/phone"
	"github.com/jordanlanch/backoffice/pkg/projects"
	"github.com/jordanlanch/backoffice/pkg/purchases"
	"github.com/jordanlanch/backoffice/pkg/sales"
)

// app holds the connections and services shared by every command.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	db      *database.Client
	redis   *cache.Client
	metrics *metrics.Metrics
	events  events.Publisher

	crm       *crm.Service
	sales     *sales.Service
	purchases *purchases.Service
	projects  *projects.Service
	dashboard *dashboard.Service
	exporter  *export.Service
	phones    *phone.Normalizer

	closers []func() error
}

// newApp connects to the store and builds the services. Redis is only
// required when needRedis is set; otherwise a failed connection disables
// token revocation checks and job deduplication.
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger, needRedis bool) (*app, error) {
	pool := database.DefaultPoolConfig()
	pool.MaxOpenConns = cfg.DBMaxOpenConns
	pool.MaxIdleConns = cfg.DBMaxIdleConns
	pool.ConnMaxLifetime = cfg.DBConnMaxLife

	db, err := database.Open(database.Options{
		Driver:        cfg.DatabaseDriver,
		URL:           cfg.DatabaseURL,
		Pool:          pool,
		SlowThreshold: cfg.DBSlowThreshold,
		Logger:        log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, metrics: metrics.New()}
	a.closers = append(a.closers, db.Close)

	redisClient, err := cache.NewClient(cfg.RedisURL, log)
	switch {
	case err == nil:
		a.redis = redisClient
		a.closers = append(a.closers, redisClient.Close)
	case needRedis:
		a.Close()
		return nil, err
	default:
		log.Warn("Redis unavailable, continuing without it", "error", err)
	}

	var publisher events.Publisher = events.Noop{}
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, log)
		if err != nil {
			log.Warn("NATS unavailable, events are dropped", "error", err)
		} else {
			log.Info("NATS connected", "url", cfg.NATSURL)
			publisher = nc
		}
	}
	a.events = a.metrics.CountEvents(publisher)
	a.closers = append(a.closers, a.events.Close)

	store, err := export.NewStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to configure export storage: %w", err)
	}

	a.phones = phone.NewNormalizer(cfg.DefaultPhoneRegion)
	a.crm = crm.NewService(db.DB, a.phones, a.events, log)
	a.sales = sales.NewService(db.DB, a.phones, a.events, log)
	a.purchases = purchases.NewService(db.DB, a.phones, a.events, log)
	a.projects = projects.NewService(db.DB, a.events, log)
	a.dashboard = dashboard.NewService(db.DB, log)
	a.exporter = export.NewService(a.dashboard, store, a.events, log)
	return a, nil
}

// cron builds the scheduler with every job registered.
func (a *app) cron() (*jobs.CronManager, error) {
	var locks jobs.Locker
	if a.redis != nil {
		locks = a.redis
	}
	cm := jobs.NewCronManager(locks, a.metrics, a.log)

	monitor := &jobs.Monitor{
		DB:                a.db.DB,
		Tasks:             a.projects,
		Sales:             a.sales,
		Exporter:          a.exporter,
		Metrics:           a.metrics,
		Events:            a.events,
		Log:               a.log,
		LowStockThreshold: a.cfg.LowStockThreshold,
	}
	if err := cm.Register(monitor.Jobs()...); err != nil {
		return nil, err
	}
	return cm, nil
}

// handlers builds the HTTP handlers. runner may be nil.
func (a *app) handlers(runner handlers.JobRunner) api.Handlers {
	timeouts := handlers.Timeouts{Report: a.cfg.ReportTimeout, CRUD: a.cfg.CRUDTimeout}
	h := api.Handlers{
		CRM:       handlers.NewCRMHandler(a.crm, timeouts),
		Sales:     handlers.NewSalesHandler(a.sales, timeouts),
		Purchases: handlers.NewPurchaseHandler(a.purchases, timeouts),
		Projects:  handlers.NewProjectHandler(a.projects, timeouts),
		Dashboard: handlers.NewDashboardHandler(a.dashboard, timeouts),
		Exports:   handlers.NewExportHandler(a.exporter, timeouts),
		Phone:     handlers.NewPhoneHandler(a.phones),
	}
	if runner != nil {
		h.Jobs = handlers.NewJobsHandler(runner)
	}
	return h
}

// Close releases connections in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
