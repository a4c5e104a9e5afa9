package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support_chat/internal/config"
	"support_chat/internal/handler"
	"support_chat/internal/middleware"
	"support_chat/internal/repository"
	"support_chat/internal/service"
	"support_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к PostgreSQL (только для CHAT_STORE=postgres)
	var dbPool *pgxpool.Pool
	if cfg.Chat.Store == config.StorePostgres {
		dbPool, err = connectPostgres(ctx, cfg.Database)
		if err != nil {
			appLogger.Fatal("Failed to connect to database", "error", err)
		}
		defer dbPool.Close()
		appLogger.Info("Database connection established")

		if err := repository.RunMigrations(ctx, dbPool, appLogger); err != nil {
			appLogger.Fatal("Failed to run migrations", "error", err)
		}
	}

	// Подключение к Redis: нужен для backplane и rate limit
	rdb := connectRedis(ctx, cfg, appLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	// Инициализация репозиториев
	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, rdb, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Identity, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.Server.RateLimit, cfg.Server.RateLimitWindow, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, cfg, appLogger)

	// Настройка роутера
	router := handler.SetupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout не применяется к сокетам после upgrade
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := services.Backplane.Run(gctx); err != nil {
			return fmt.Errorf("backplane: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		appLogger.Info("Starting server", "addr", srv.Addr, "store", cfg.Chat.Store, "backplane", cfg.Chat.Backplane)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Ожидание сигнала (или падения одной из горутин) для graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return services.Backplane.Close()
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	appLogger.Info("Server exited")
}

func connectPostgres(ctx context.Context, dbCfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dbCfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(dbCfg.MaxConnections)
	poolCfg.MaxConnIdleTime = dbCfg.MaxIdleTime
	poolCfg.MaxConnLifetime = dbCfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	// Проверка подключения к БД
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// connectRedis: без redis сервис работает на одном инстансе и без rate limit,
// кроме CHAT_BACKPLANE=redis, где redis обязателен
func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		if cfg.Chat.Backplane == config.BackplaneRedis {
			log.Fatal("Failed to connect to Redis", "error", err)
		}
		log.Warn("Redis is unavailable, continuing without it", "addr", cfg.Redis.Addr, "error", err)
		_ = rdb.Close()
		return nil
	}

	log.Info("Redis connection established")
	return rdb
}
