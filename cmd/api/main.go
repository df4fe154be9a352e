package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/mvporto/fii-rag/internal/adapters/http"
	"github.com/mvporto/fii-rag/internal/bootstrap"
	"github.com/mvporto/fii-rag/internal/config"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	// A matching snapshot makes the first question fast; without one the
	// index is built lazily on the first grounded request.
	go func() {
		warmed, err := app.Retriever.TryWarm(ctx)
		if err != nil {
			app.Logger.Warn("index_warm_failed", "error", err)
			return
		}
		if warmed {
			app.Logger.Info("index_warm_complete")
		}
	}()

	router := httpadapter.NewRouter(cfg, app.Questions, app.Metrics).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api_shutdown_error", "error", err)
	}
}
