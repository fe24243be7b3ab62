package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/cache"
	"github.com/warp/leave-engine/calendar"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/outbox"
	"github.com/warp/leave-engine/store/sqlstore"
	"github.com/warp/leave-engine/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the calendar outbox relay",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	log := logrus.NewEntry(logger).WithField("service", cfg.Telemetry.ServiceName)

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return err
	}

	store, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	holidays, err := cfg.HolidayCalendar()
	if err != nil {
		return err
	}

	var yearCache leave.Cache = cache.NewMemory()
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Telemetry.ServiceName + ":",
		})
		if err != nil {
			return err
		}
		defer rc.Close()
		yearCache = rc
	}

	svc := leave.NewService(store, leave.Options{
		Holidays: holidays,
		Cache:    yearCache,
		CacheTTL: cfg.CacheTTL,
		Logger:   log,
	})

	cal, err := newCalendar(ctx, cfg.Calendar, log)
	if err != nil {
		return err
	}
	relay, err := outbox.NewRelay(store, calendar.NewDispatcher(cal, store, log), outbox.RelayOptions{
		PollInterval: cfg.Outbox.PollInterval,
		BatchSize:    cfg.Outbox.BatchSize,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		Logger:       log.WithField("component", "outbox"),
	})
	if err != nil {
		return err
	}
	relay.Start()

	router := api.NewRouter(api.NewHandler(svc, store, log), api.RouterOptions{
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      log.WithField("component", "http"),
		Ready:       func(ctx context.Context) error { return store.DB().PingContext(ctx) },
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case <-quit:
	case <-ctx.Done():
	case runErr = <-serverErr:
		if runErr != nil {
			log.WithError(runErr).Error("server failed")
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server forced to shutdown")
	}
	relay.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Warn("trace flush failed")
	}
	log.Info("server stopped")
	return runErr
}

// newCalendar returns the Google adapter, or an in-process recorder when
// calendar sync is disabled so the outbox still drains.
func newCalendar(ctx context.Context, o config.CalendarOptions, log *logrus.Entry) (calendar.Calendar, error) {
	if !o.Enabled {
		log.Info("calendar sync disabled, recording events in memory")
		return calendar.NewRecorder(), nil
	}
	return calendar.NewGoogle(ctx, calendar.GoogleOptions{
		CredentialsFile:  o.CredentialsFile,
		SharedCalendarID: o.SharedID,
		Endpoint:         o.Endpoint,
	})
}
