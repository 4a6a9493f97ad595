package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"sitegate/audit"
	"sitegate/auth"
	"sitegate/config"
	"sitegate/handlers"
	"sitegate/logger"
	"sitegate/models"
	"sitegate/utils"
)

func main() {
	// Load environment variables
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found, continuing")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logr.Sync()
	logr.Info("starting", zap.String("environment", cfg.Environment), zap.String("audit_store", cfg.AuditStore))

	// The server still starts without these so every login answers with a
	// server error instead of the site being unreachable.
	if cfg.AuthSecret == "" {
		logr.Error("AUTH_SECRET is not set; logins will fail")
	}
	if cfg.SitePassword == "" && cfg.SitePasswordHash == "" {
		logr.Error("SITE_PASSWORD or SITE_PASSWORD_HASH is not set; logins will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := audit.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open audit store", zap.Error(err))
	}
	defer store.Close(context.Background())

	var alerter auth.Alerter
	if cfg.AlertingEnabled() {
		sg, err := utils.NewSendGridAlerter(cfg.SendGridAPIKey, cfg.AlertFrom, cfg.AlertEmail, logr)
		if err != nil {
			logr.Fatal("failed to configure security alerts", zap.Error(err))
		}
		alerter = sg
	}

	codec := auth.NewTokenCodec(cfg.AuthSecret, cfg.SessionMaxAge)
	gate := auth.NewGate(store, codec, models.SiteCredential{
		Password: cfg.SitePassword,
		Hash:     cfg.SitePasswordHash,
	}, auth.Options{
		Window:  cfg.FailureWindow,
		Alerter: alerter,
		Logger:  logr,
	})
	guard := auth.NewGuard(codec, store, logr)

	authHandler := handlers.NewAuthHandler(gate, guard, codec, cfg.IsProduction(), logr)
	auditHandler := handlers.NewAuditHandler(store, logr)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/auth/login", authHandler.LoginHandler)
	mux.HandleFunc("/api/auth/status", authHandler.StatusHandler)
	mux.HandleFunc("/api/auth/logout", authHandler.LogOutHandler)
	mux.Handle("/api/auth/session", authHandler.RequireAuth(http.HandlerFunc(authHandler.SessionHandler)))
	mux.Handle("/api/audit", authHandler.RequireAuth(http.HandlerFunc(auditHandler.RecordHandler)))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		logr.Info("listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
