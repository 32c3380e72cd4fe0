package main

import (
	"bytes"
	"context"
	_ "embed"
	"flag"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"kanban/internal/auth"
	"kanban/internal/cache"
	"kanban/internal/config"
	"kanban/internal/db"
	"kanban/internal/logger"
	"kanban/internal/repository"
	"kanban/internal/service"
)

//go:embed demo.json
var demoFixture []byte

func main() {
	file := flag.String("file", "", "path to a JSON fixture (defaults to the built-in demo data)")
	remove := flag.String("remove", "", "delete the user with this email instead of seeding")
	flag.Parse()

	cfg := config.Load()
	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	gormDB, err := db.Open(db.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}
	zapLogger.Info("connected to database", zap.String("driver", cfg.DBDriver))

	if err := db.Migrate(gormDB); err != nil {
		zapLogger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Removal must evict the server's cached user, so share its redis.
	var cacheClient *cache.Client
	if cfg.RedisAddr != "" {
		cacheClient = cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer func() { _ = cacheClient.Close() }()
	}

	store := repository.NewStore(gormDB)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	seeder := &Seeder{
		auth:     service.NewAuthService(store.Users(), jwtService, auth.NewMemoryTokenStore(), zapLogger, nil),
		users:    service.NewUserService(store.Users(), cacheClient, zapLogger),
		boards:   service.NewBoardService(store, zapLogger, nil),
		tasks:    service.NewTaskService(store, zapLogger, nil),
		comments: service.NewCommentService(store, zapLogger, nil),
		logger:   zapLogger,
	}
	ctx := context.Background()

	if *remove != "" {
		if err := seeder.Remove(ctx, *remove); err != nil {
			zapLogger.Fatal("failed to remove user", zap.String("email", *remove), zap.Error(err))
		}
		zapLogger.Info("user removed", zap.String("email", *remove))
		return
	}

	var src io.Reader = bytes.NewReader(demoFixture)
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			zapLogger.Fatal("failed to open fixture", zap.Error(err))
		}
		defer f.Close()
		src = f
	}

	fixture, err := ParseFixture(src)
	if err != nil {
		zapLogger.Fatal("failed to parse fixture", zap.Error(err))
	}

	sum, err := seeder.Run(ctx, fixture)
	if err != nil {
		zapLogger.Fatal("seed failed", zap.Error(err))
	}
	zapLogger.Info("seed completed",
		zap.Int("users", sum.Users),
		zap.Int("boards", sum.Boards),
		zap.Int("tasks", sum.Tasks),
		zap.Int("comments", sum.Comments),
	)
}
