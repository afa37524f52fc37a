package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/backoffice/config"
	_ "github.com/jordanlanch/backoffice/docs" // Swagger docs (generated)
	"github.com/jordanlanch/backoffice/pkg/api"
	"github.com/jordanlanch/backoffice/pkg/api/handlers"
	apimw "github.com/jordanlanch/backoffice/pkg/api/middleware"
	"github.com/jordanlanch/backoffice/pkg/auth"
	"github.com/jordanlanch/backoffice/pkg/i18n"
	"github.com/jordanlanch/backoffice/pkg/logger"
	custommw "github.com/jordanlanch/backoffice/pkg/middleware"
	"github.com/jordanlanch/backoffice/pkg/validation"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	echoSwagger "github.com/swaggo/echo-swagger"
)

const (
	shutdownTimeout = 10 * time.Second
	dbStatsInterval = 15 * time.Second
)

func serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log := setup()
			return serve(cmd.Context(), cfg, log, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger, migrate bool) error {
	log.Info("configuration loaded", "environment", cfg.APIEnvironment)

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.APIEnvironment,
			Release:          version,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Warn("failed to initialize Sentry", "error", err)
		} else {
			log.Info("Sentry initialized", "environment", cfg.APIEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	}

	a, err := newApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if migrate {
		if err := a.db.Migrate(); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		log.Info("schema migrated")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runner handlers.JobRunner
	if cfg.JobsEnabled {
		cronManager, err := a.cron()
		if err != nil {
			return err
		}
		cronManager.Start()
		defer func() {
			<-cronManager.Stop().Done()
			log.Info("cron jobs stopped")
		}()
		runner = cronManager
	}

	limiter := custommw.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	limiter.OnLimit = a.metrics.RateLimited.Inc
	go limiter.Run(ctx)
	go a.recordDBStats(ctx)

	e := newServer(a, limiter, runner)

	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Info("API starting",
		"address", address,
		"jobs", cfg.JobsEnabled,
		"rate_limit_rpm", cfg.RateLimitRequestsPerMinute,
		"storage", cfg.StorageType,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server gracefully stopped")
	return nil
}

// newServer builds the echo instance with middleware and routes.
func newServer(a *app, limiter *custommw.RateLimiter, runner handlers.JobRunner) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.EchoValidator{}

	e.Use(middleware.Recover())
	if a.cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(custommw.RequestID())
	e.Use(logger.Middleware(a.log))
	e.Use(i18n.Middleware(a.cfg.DefaultLanguage))
	e.Use(a.metrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommw.CORSConfig(a.cfg.CORSAllowedOrigins)))
	e.Use(custommw.SecurityHeaders(custommw.SecurityHeadersConfig{DocsPrefix: "/swagger/", NoStorePrefix: "/api/"}))
	if limiter != nil {
		e.Use(limiter.Middleware())
	}

	e.GET("/health", a.health)
	e.GET("/metrics", echo.WrapHandler(a.metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	v1 := e.Group("/api/v1")
	v1.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": "pong"})
	})
	v1.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": version})
	})

	var blacklist *auth.TokenBlacklist
	if a.redis != nil {
		blacklist = auth.NewTokenBlacklist(a.redis)
	}
	api.Register(v1.Group(""), a.handlers(runner), apimw.JWT(a.cfg.JWTSecret, blacklist, a.db.DB))
	return e
}

// health reports whether the store and the cache answer.
func (a *app) health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := map[string]string{"status": "healthy", "database": "up", "cache": "up"}
	status := http.StatusOK
	if err := a.db.Ping(ctx); err != nil {
		resp["database"] = "down"
		resp["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	switch {
	case a.redis == nil:
		resp["cache"] = "disabled"
	case a.redis.Ping(ctx) != nil:
		resp["cache"] = "down"
		resp["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

// recordDBStats exports the connection pool gauges until ctx is done.
func (a *app) recordDBStats(ctx context.Context) {
	ticker := time.NewTicker(dbStatsInterval)
	defer ticker.Stop()
	for {
		a.metrics.RecordDBStats(a.db.Stats())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
