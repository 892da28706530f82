package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/marup-app/marup-server/internal/auth"
	"github.com/marup-app/marup-server/internal/config"
	"github.com/marup-app/marup-server/internal/engine"
	"github.com/marup-app/marup-server/internal/events"
	"github.com/marup-app/marup-server/internal/handlers"
	"github.com/marup-app/marup-server/internal/metrics"
	"github.com/marup-app/marup-server/internal/middleware"
	"github.com/marup-app/marup-server/internal/payment"
	"github.com/marup-app/marup-server/internal/scheduler"
	"github.com/marup-app/marup-server/internal/storage/sqlite"
	"github.com/marup-app/marup-server/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.JWTSecret == "" {
		slog.Error("auth.jwt_secret is not set; refusing to start")
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	eng := engine.New(store, events.NewNotifier(store),
		engine.WithRequireFullContribution(cfg.Lottery.RequireFullContribution))

	var payments *payment.Service
	if cfg.Stripe.SecretKey != "" {
		payments = payment.NewService(store, eng, payment.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			SuccessURL:    cfg.Stripe.SuccessURL,
			CancelURL:     cfg.Stripe.CancelURL,
		})
	} else {
		slog.Warn("Stripe is not configured; payment routes are disabled")
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(metrics.GinMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Stripe-Signature"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	handlers.New(store, eng, authenticator, jwtManager, payments).Register(router)

	sched, err := scheduler.New(store, eng, scheduler.Config{
		ResolveDueRounds: cfg.Scheduler.ResolveDueRounds,
		MonthlyReminders: cfg.Scheduler.MonthlyReminders,
	})
	if err != nil {
		slog.Error("Failed to configure scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
