package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codementor/internal/bootstrap"
	"codementor/internal/platform/config"
	"codementor/internal/platform/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// The reconciler drains the finalize reconcile queue without serving the
// API, for deployments that keep RECONCILE_WORKER_ENABLED off on the
// API servers.
func main() {
	config.Load()
	logger.Configure(config.AppConfig.LogLevel, config.AppConfig.LogDir)
	defer logger.Sync()
	log := logger.NewNamedLogger("reconciler")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, config.AppConfig)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer app.Close()

	w := app.NewReconcileWorker()
	if w == nil {
		log.Fatalw("Reconciler needs Redis", "addr", config.AppConfig.RedisAddr)
	}

	// Graceful shutdown on SIGINT or SIGTERM
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Start(ctx)
	}()

	metricsServer := &http.Server{
		Addr:              ":" + config.AppConfig.APIPort,
		Handler:           promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("Metrics listener failed", "error", err)
		}
	}()

	<-sigs
	log.Infow("Shutdown signal received.")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	// Wait for the in-flight entry to finish
	wg.Wait()
	log.Infow("Reconciler exited cleanly.")
}
