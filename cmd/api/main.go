package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aipowergrid/aipg-photo-gallery/internal/app"
	"github.com/aipowergrid/aipg-photo-gallery/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appInstance, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialise app: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := appInstance.Close(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := appInstance.Start(ctx); err != nil {
		log.Fatalf("failed to load photos: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           appInstance.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("photo gallery API (%s) listening on %s", cfg.Platform, cfg.Address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server stopped: %v", err)
	}
}
