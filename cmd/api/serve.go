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

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fleet-ops-api/handlers"
	"fleet-ops-api/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := services.NewModelStore(cfg.Model)
	if _, err := store.Ensure(ctx); err != nil {
		// Predictions retry on demand.
		logrus.WithError(err).Warn("model not ready at startup")
	}
	if cfg.Model.Watch {
		if err := store.Watch(ctx); err != nil {
			logrus.WithError(err).Warn("model artifact watch disabled")
		}
	}

	pool, err := services.NewPoolProvisioner(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logrus.WithError(err).Warn("database unreachable, compliance writes will be skipped")
	}

	db, err := services.OpenDB(cfg.Database)
	if err != nil {
		return err
	}
	if err := services.PingDB(ctx, db); err != nil {
		logrus.WithError(err).Warn("database unreachable, chart endpoints will fail")
	}

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("redis unavailable, running without cache, live updates or job queue")
	}
	defer cache.Close()

	writer := services.NewComplianceWriter(pool, cfg.Compliance, nil)
	var events services.EventPublisher
	if cache.Available() {
		events = cache
	}
	predictor := services.NewPredictionService(store, writer, events, nil).WithChartCache(cache)

	gin.SetMode(gin.ReleaseMode)
	router := handlers.NewRouter(handlers.Dependencies{
		Config:    cfg,
		Predictor: predictor,
		DB:        db,
		Cache:     cache,
		Queue:     services.NewJobQueue(cache),
		LogOutput: logOutput,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
