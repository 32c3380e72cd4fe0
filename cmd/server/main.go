package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"kanban/docs"
	"kanban/internal/auth"
	"kanban/internal/cache"
	"kanban/internal/config"
	"kanban/internal/db"
	"kanban/internal/handler"
	"kanban/internal/logger"
	"kanban/internal/metrics"
	"kanban/internal/repository"
	"kanban/internal/router"
	"kanban/internal/service"
)

// @title Kanban API
// @version 1.0
// @description Kanban boards with members, tasks and comments, secured by JWT.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if cfg.JWTSecret == "change-me" {
		zapLogger.Warn("JWT_SECRET is not set, using the insecure default")
	}

	gormDB, err := db.Open(db.Config{
		Driver:          cfg.DBDriver,
		DSN:             cfg.DBDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		zapLogger.Fatal("database init", zap.Error(err))
	}

	if cfg.ResetDB {
		zapLogger.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			zapLogger.Warn("failed to drop tables (may not exist)", zap.Error(err))
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		zapLogger.Fatal("auto-migrate", zap.Error(err))
	}

	m := metrics.New(zapLogger)
	if err := db.RegisterMetricsCallbacks(gormDB, m); err != nil {
		zapLogger.Fatal("register db metrics callbacks", zap.Error(err))
	}
	stopStats := db.StartStatsCollector(gormDB, m, 15*time.Second)
	defer close(stopStats)

	// Token storage falls back to process memory when redis is not configured.
	var (
		cacheClient *cache.Client
		tokenStore  auth.TokenStoreInterface
	)
	if cfg.RedisAddr != "" {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer func() { _ = cacheClient.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cacheClient.Ping(pingCtx); err != nil {
			zapLogger.Warn("redis unreachable, continuing without cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		tokenStore = auth.NewTokenStore(cacheClient)
	} else {
		zapLogger.Info("REDIS_ADDR not set, using in-memory token store")
		tokenStore = auth.NewMemoryTokenStore()
	}

	store := repository.NewStore(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Initialize services
	authService := service.NewAuthService(store.Users(), jwtService, tokenStore, zapLogger, m)
	userService := service.NewUserService(store.Users(), cacheClient, zapLogger)
	boardService := service.NewBoardService(store, zapLogger, m)
	taskService := service.NewTaskService(store, zapLogger, m)
	commentService := service.NewCommentService(store, zapLogger, m)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Options{
		Logger:     zapLogger,
		Metrics:    m,
		Gatherer:   prometheus.DefaultGatherer,
		JWTService: jwtService,
		TokenStore: tokenStore,
		Users:      userService,
	}, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService),
		Board:   handler.NewBoardHandler(boardService),
		Task:    handler.NewTaskHandler(taskService),
		Comment: handler.NewCommentHandler(commentService),
	})

	zapLogger.Info("swagger documentation available",
		zap.String("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html"))

	addr := ":" + cfg.ServerPort
	go func() {
		zapLogger.Info("server starting", zap.String("addr", addr), zap.String("db_driver", cfg.DBDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
