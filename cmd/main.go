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

	"github.com/askarbek/auth-service/internal/adapter/email"
	mongoadapter "github.com/askarbek/auth-service/internal/adapter/mongo"
	natsadapter "github.com/askarbek/auth-service/internal/adapter/nats"
	redisadapter "github.com/askarbek/auth-service/internal/adapter/redis"
	"github.com/askarbek/auth-service/internal/config"
	"github.com/askarbek/auth-service/internal/handler"
	"github.com/askarbek/auth-service/internal/hasher"
	"github.com/askarbek/auth-service/internal/platform/logger"
	"github.com/askarbek/auth-service/internal/platform/metrics"
	"github.com/askarbek/auth-service/internal/platform/tracer"
	"github.com/askarbek/auth-service/internal/port/cache"
	"github.com/askarbek/auth-service/internal/router"
	"github.com/askarbek/auth-service/internal/token"
	"github.com/askarbek/auth-service/internal/usecase"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found or error loading, relying on environment variables:", err)
	}

	appLogger := logger.NewLogger()
	defer func() {
		_ = appLogger.Sync()
	}()
	appLogger.Info("Auth service starting...")

	cfg, err := config.LoadConfig(appLogger)
	if err != nil {
		appLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	tp := tracer.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint, appLogger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Failed to shut down tracer provider", zap.Error(err))
		}
	}()

	mongoClient, err := mongoadapter.NewMongoDBConnection(cfg.MongoURI)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			appLogger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		}
	}()
	appLogger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	userRepo := mongoadapter.NewUserRepository(mongoClient.Database(cfg.MongoDatabase), appLogger)

	var cacheRepo cache.CacheRepository
	if cfg.RedisAddr != "" {
		redisClient, err := redisadapter.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, appLogger)
		if err != nil {
			appLogger.Warn("Redis is unavailable, profile caching disabled", zap.Error(err))
		} else {
			defer func() {
				if err := redisClient.Close(); err != nil {
					appLogger.Error("Failed to close Redis client", zap.Error(err))
				}
			}()
			cacheRepo = redisadapter.NewRedisCacheRepository(redisClient, appLogger)
		}
	}

	var publisher usecase.EventPublisher
	if cfg.NATSURL != "" {
		natsPublisher, err := natsadapter.NewPublisher(cfg.NATSURL, appLogger, cfg.ServiceName)
		if err != nil {
			appLogger.Warn("NATS is unavailable, lifecycle events disabled", zap.Error(err))
		} else {
			defer natsPublisher.Close()
			publisher = natsPublisher
		}
	}

	var mailer usecase.Mailer
	smtpSender, err := email.NewSMTPSender(cfg.SMTP, appLogger)
	if err != nil {
		appLogger.Warn("SMTP is not configured, outbound mail disabled", zap.Error(err))
	} else {
		mailer = smtpSender
	}

	metricsManager := metrics.NewMetricsManager(cfg.ServiceName)
	go func() {
		if err := metrics.StartMetricsServer(cfg.PrometheusMetricsPort, appLogger, metricsManager.Registry); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()

	issuer := token.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	passwordHasher := hasher.NewHasher(cfg.BcryptCost)

	authUsecase := usecase.NewAuthUsecase(
		userRepo,
		passwordHasher,
		issuer,
		mailer,
		publisher,
		cacheRepo,
		metricsManager,
		cfg.BaseURL,
		cfg.ResetTokenTTL,
		appLogger,
	)
	authHandler := handler.NewAuthHandler(authUsecase, cfg.SecureCookies, appLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router.New(authHandler, issuer, metricsManager, appLogger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		appLogger.Info("HTTP server listening", zap.String("address", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	case sig := <-quit:
		appLogger.Info("Shutdown signal received", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Graceful shutdown failed, forcing close", zap.Error(err))
			_ = srv.Close()
		}
	}

	appLogger.Info("Auth service stopped")
}
