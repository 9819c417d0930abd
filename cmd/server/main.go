package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloudfiles/internal/config"
	"cloudfiles/internal/db"
	"cloudfiles/internal/http/router"
	"cloudfiles/internal/logger"
	"cloudfiles/internal/metrics"
	"cloudfiles/internal/security"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logr, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logr.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the record store, shared by every request
	store, err := db.Open(ctx, db.Options{
		Driver:       cfg.DBDriver,
		DSN:          cfg.DBDSN,
		MaxIdleConns: cfg.MaxIdleConns,
	}, logr, m)
	if err != nil {
		logr.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	sessionStore, err := security.NewSessionStore(cfg.Secret)
	if err != nil {
		logr.Fatal("failed to initialize session store", zap.Error(err))
	}
	switch {
	case cfg.Secret == "":
		logr.Warn("no session secret configured, flash cookies will not survive a restart")
	case cfg.WeakSecret():
		logr.Warn("session secret is the example placeholder, set CLOUDFILES_SESSION_SECRET")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(store, sessionStore, logr, m, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logr.Error("shutdown", zap.Error(err))
		}
	}()

	logr.Info("starting server",
		zap.String("port", cfg.Port),
		zap.String("db_driver", cfg.DBDriver),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("failed to start server", zap.Error(err))
	}
}
