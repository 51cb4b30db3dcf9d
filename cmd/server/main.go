// Command server runs the mock API: session tokens, users, notices and
// albums over HTTP.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AurLemon/course-android-mockapi/internal/auth"
	"github.com/AurLemon/course-android-mockapi/internal/config"
	"github.com/AurLemon/course-android-mockapi/internal/database"
	"github.com/AurLemon/course-android-mockapi/internal/handler"
	"github.com/AurLemon/course-android-mockapi/internal/logging"
	"github.com/AurLemon/course-android-mockapi/internal/middleware"
	"github.com/AurLemon/course-android-mockapi/internal/queue"
	"github.com/AurLemon/course-android-mockapi/internal/repository"
	"github.com/AurLemon/course-android-mockapi/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load() // .env plus environment
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- MySQL ----
	db, err := database.Open(cfg.Options())
	if err != nil {
		return fmt.Errorf("connect mysql: %w", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	// ---- Redis (optional) ----
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		return err
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		return err
	}
	rateCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		return err
	}
	rdb := config.NewRedisClient(redisCfg, log)
	if rdb != nil {
		defer rdb.Close()
	}

	// ---- session events (optional) ----
	amqpCfg, err := config.LoadAMQPConfig()
	if err != nil {
		return err
	}
	opts := auth.Options{
		AccessTTL:       cfg.AccessTTL,
		RefreshTTL:      cfg.RefreshTTL,
		RotateWindow:    cfg.RotateWindow,
		ConflictBackoff: cfg.ConflictBackoff,
		Logger:          log,
	}
	if amqpCfg.Enabled {
		pub := queue.NewPublisher(amqpCfg, log)
		pub.Start()
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Close(closeCtx); err != nil {
				log.Warn("event publisher did not flush", zap.Error(err), zap.Int64("dropped", pub.Dropped()))
			}
		}()
		opts.Notifier = pub

		if amqpCfg.Consume {
			stopConsumer, err := startAuditConsumer(ctx, amqpCfg, log)
			if err != nil {
				return err
			}
			defer stopConsumer()
		}
	}

	// ---- domain ----
	users := repository.NewUserRepo(db)
	authority := auth.NewAuthority(repository.NewTokenRepo(db), auth.NewSigner(cfg.JWTSecret), opts)
	credentials := auth.NewCredentials(users)

	authH := handler.NewAuthHandler(authority, credentials, users, cfg.BcryptCost, cfg.RequestTimeout)
	userH := handler.NewUserHandler(users, authority, cfg.BcryptCost, cfg.RequestTimeout)
	purge := cachePurger(rdb, cacheCfg, log)
	noticeH := handler.NewNoticeHandler(repository.NewNoticeRepo(db), purge, cfg.RequestTimeout)
	albumH := handler.NewAlbumHandler(repository.NewAlbumRepo(db), purge, cfg.RequestTimeout)

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.Secure())
	e.Use(echomw.Gzip())

	router.RegisterRoutes(e, readinessChecks(db, rdb))

	guard := middleware.Guard(authority)
	api := e.Group("/api")
	router.RegisterAuth(api, authH, guard, middleware.NewTokenBucket(rateCfg, rdb, log))
	router.RegisterUsers(api, userH, guard)
	router.RegisterNotices(api, noticeH, guard, middleware.NewRedisCache(cacheCfg, rdb, handler.NoticeCacheGroup, log))
	router.RegisterAlbums(api, albumH, guard, middleware.NewRedisCache(cacheCfg, rdb, handler.AlbumCacheGroup, log))

	addr := ":" + cfg.Port
	srvErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-srvErr:
		return err
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutCtx)
}

// startAuditConsumer runs the audit consumer until the returned stop
// function is called.
func startAuditConsumer(ctx context.Context, cfg config.AMQPConfig, log *zap.Logger) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.AuditLogPath), 0o755); err != nil {
		return nil, fmt.Errorf("audit log dir: %w", err)
	}
	sink, err := logging.NewFile(cfg.AuditLogPath)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := queue.StartAuditConsumer(ctx, cfg, log, sink); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit consumer stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
		_ = sink.Sync()
	}, nil
}

// cachePurger drops cached listings after writes. Failures only leave
// entries to expire by TTL, so they are logged and swallowed.
func cachePurger(rdb *redis.Client, cfg config.CacheConfig, log *zap.Logger) handler.Purger {
	log = log.Named("cache")
	return func(ctx context.Context, group string) {
		if err := middleware.PurgeCache(context.WithoutCancel(ctx), rdb, cfg, group); err != nil {
			log.Warn("purge failed", zap.String("group", group), zap.Error(err))
		}
	}
}

func readinessChecks(db *sql.DB, rdb *redis.Client) map[string]handler.Check {
	checks := map[string]handler.Check{
		"mysql": func(ctx context.Context) error { return repository.Ping(ctx, db) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	return checks
}
