package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shoalcreek/privacycore/internal/anomaly"
	"github.com/shoalcreek/privacycore/internal/api"
	"github.com/shoalcreek/privacycore/internal/config"
	"github.com/shoalcreek/privacycore/internal/core"
	"github.com/shoalcreek/privacycore/internal/envelope"
	"github.com/shoalcreek/privacycore/internal/health"
	"github.com/shoalcreek/privacycore/internal/metrics"
	"github.com/shoalcreek/privacycore/internal/storage"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "privacycore ", log.LstdFlags)

	configPath := flag.String("config", "", "path to a config file (optional; env vars always win)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	masterKey, generated, err := envelope.ResolveMasterKey(cfg.MasterKey)
	if err != nil {
		logger.Fatalf("failed to resolve master key: %v", err)
	}
	if generated {
		logger.Print("WARNING: no master key configured, generated a random one for this process; ciphertext from prior runs cannot be decrypted")
	}

	store, err := storage.Open(cfg.DSN)
	if err != nil {
		logger.Fatalf("failed to open store: %v", err)
	}
	if err := store.ApplyMigrations(); err != nil {
		logger.Fatalf("failed to apply migrations: %v", err)
	}

	window, maxOps, failureRatio, revokedAttempts, hoursStart, hoursEnd := cfg.AnomalyThresholds()
	thresholds := anomaly.Thresholds{
		Window:                      window,
		MaxOpsPerWindow:             maxOps,
		FailureRatioThreshold:       failureRatio,
		RevokedKeyAttemptsThreshold: revokedAttempts,
		WorkingHoursStart:           hoursStart,
		WorkingHoursEnd:             hoursEnd,
	}

	svc, err := core.New(store, masterKey, thresholds)
	if err != nil {
		logger.Fatalf("failed to init core: %v", err)
	}

	jwtSecret := []byte(cfg.JWTSecret)
	server := api.NewServer(svc, store.Actors(), logger, jwtSecret)

	mux := http.NewServeMux()
	mux.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health.Handler(generated, func() error { return store.Ping(r.Context()) }).ServeHTTP(w, r)
	}))
	mux.Handle("/ready", health.NewReadiness(func() error { return store.Ping(context.Background()) }))
	mux.Handle("/live", health.LiveHandler())
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", metrics.Middleware(server.Handler()))

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-quit
		logger.Print("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}()

	logger.Printf("listening on %s", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
	if err := store.Close(); err != nil {
		logger.Printf("store close: %v", err)
	}
	logger.Print("server stopped")
}
