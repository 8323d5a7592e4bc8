package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pushdispatch/internal/auth"
	"pushdispatch/internal/config"
	"pushdispatch/internal/dispatch"
	"pushdispatch/internal/httpserver"
	"pushdispatch/internal/push/fcm"
	"pushdispatch/internal/push/webpush"
	"pushdispatch/internal/repository"
	"pushdispatch/pkg/db"
	"pushdispatch/pkg/logger"
	"pushdispatch/pkg/mq"
	"pushdispatch/pkg/redis"
	"pushdispatch/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting push-dispatch service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("port", cfg.Server.Port),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis (admin-check cache)
	rdb := redis.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	// MQ publisher for dispatch outcome events; optional.
	var events dispatch.EventPublisher
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		events = publisher
	} else {
		log.Info("MQ url not set, dispatch events disabled")
	}

	// Repositories
	notificationRepo := repository.NewNotificationRepository(dbConn, log)
	tokenRepo := repository.NewTokenRepository(dbConn, log)
	deliveryRepo := repository.NewDeliveryRepository(dbConn, log)

	// FCM: credential source + sender, only when a service account is set.
	var creds dispatch.CredentialSource
	var fcmSender dispatch.FCMSender
	if cfg.FCM.ServiceAccountJSON != "" {
		sa, err := fcm.ParseServiceAccount(cfg.FCM.ServiceAccountJSON)
		if err != nil {
			log.Fatal("Invalid FCM service account", zap.Error(err))
		}
		ts := fcm.NewTokenSource(sa, log)
		creds = ts
		fcmSender = fcm.NewSender(ts.ProjectID(), log)
	} else {
		log.Warn("FCM service account not set, android/ios dispatch disabled")
	}

	// Web Push sender, only when the VAPID identity is complete.
	var webSender dispatch.WebPushSender
	if cfg.VAPID.PublicKey != "" || cfg.VAPID.PrivateKey != "" || cfg.VAPID.Subject != "" {
		ws, err := webpush.NewSender(cfg.VAPID, log)
		if err != nil {
			log.Fatal("Invalid VAPID configuration", zap.Error(err))
		}
		webSender = ws
	} else {
		log.Warn("VAPID keys not set, web dispatch disabled")
	}

	// Auth
	verifier := auth.NewVerifier(cfg.JWT.Secret)
	adminChecker := auth.NewAdminChecker(dbConn, rdb,
		time.Duration(cfg.Dispatch.AdminCacheSeconds)*time.Second, log)

	// Orchestrator
	orchestrator := dispatch.NewOrchestrator(
		notificationRepo,
		tokenRepo,
		deliveryRepo,
		creds,
		fcmSender,
		webSender,
		events,
		retry.Config{
			MaxRetries: cfg.Dispatch.RetryMax,
			BaseDelay:  time.Duration(cfg.Dispatch.RetryBaseDelayMS) * time.Millisecond,
			MaxJitter:  150 * time.Millisecond,
		},
		log,
	)

	// HTTP server
	handler := httpserver.NewDispatchHandler(orchestrator, verifier, adminChecker, log)
	router := httpserver.NewRouter(handler, dbConn)
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("push-dispatch service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down push-dispatch service gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("push-dispatch service shutdown complete")
}
