package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codementor/internal/api"
	"codementor/internal/bootstrap"
	"codementor/internal/common/security"
	"codementor/internal/platform/config"
	"codementor/internal/platform/logger"
)

func main() {
	// 1. Load Configuration
	config.Load()
	logger.Configure(config.AppConfig.LogLevel, config.AppConfig.LogDir)
	defer logger.Sync()
	log := logger.NewNamedLogger("server")

	// 2. Initialize JWT
	security.InitJWT(config.AppConfig.JWTKey, config.AppConfig.JWTExp)

	// 3. Storage, cache, queue, events, sandbox and services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, config.AppConfig)
	if err != nil {
		log.Fatalw("Failed to initialize application", "error", err)
	}
	defer app.Close()

	// 4. Reconcile worker (as a goroutine)
	var wg sync.WaitGroup
	if config.AppConfig.ReconcileWorker {
		if w := app.NewReconcileWorker(); w != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w.Start(ctx)
			}()
		}
	}

	// 5. Router & HTTP Server
	router := api.NewRouter(app.Services, app.Registry, 90*time.Second)

	// WriteTimeout covers a submit waiting on every test in the sandbox.
	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 6. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infow("Server starting", "port", config.AppConfig.APIPort, "storage", config.AppConfig.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Could not listen", "port", config.AppConfig.APIPort, "error", err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Infow("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}
	cancel() // Signal worker to stop
	wg.Wait()

	log.Infow("Server and worker stopped gracefully.")
}
