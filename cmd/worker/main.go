// Package main - точка входа фоновых процессов подсистемы рейтингов.
//
// Worker отвечает за периодические задачи:
// - Страховочное переназначение плотных рангов по всем метрикам
// - Полная сверка денормализованных агрегатов с исходными строками
//
// Событийный конвейер HTTP-сервиса покрывает обычный поток записей;
// Worker гарантирует сходимость после сбоев, ручных правок базы и
// пропущенных событий.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuforums/tuf-rankings/config"
	"github.com/tuforums/tuf-rankings/internal/application/command"
	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/messaging"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/redis"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/scheduler"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/scheduler/jobs"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting TUF rankings worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"rank_interval", cfg.Scheduler.RankInterval.String(),
		"audit_interval", cfg.Scheduler.AuditInterval.String(),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnection(ctx, cfg.Database.URL, postgres.PoolSettings{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ИНИЦИАЛИЗАЦИЯ REDIS (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var cache leaderboard.Cache = redis.NewNoopCache()

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, cache invalidation disabled", "error", err)
		} else {
			defer redisCache.Close()
			cache = redis.NewTagCache(redisCache, cfg.Redis.LeaderboardTTL)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ИНИЦИАЛИЗАЦИЯ РЕПОЗИТОРИЕВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	passRepo := postgres.NewPassRepository(dbConn)
	levelRepo := postgres.NewLevelRepository(dbConn)
	playerRepo := postgres.NewPlayerRepository(dbConn)
	leaderboardRepo := postgres.NewLeaderboardRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ИНИЦИАЛИЗАЦИЯ EVENT BUS
	// В воркере шина нужна только как издатель событий сверки; подписчиков
	// нет, синхронный режим достаточен.
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = false
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ПЛАНИРОВЩИК И ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	recomputeStats := command.NewRecomputeStatsHandler(
		passRepo, playerRepo, cfg.Scoring, eventBus, cfg.Scheduler.RecomputeRetries, log)

	sched := scheduler.NewScheduler(log)

	rankJob := jobs.NewReassignRanksJob(leaderboardRepo, cache, log, cfg.Scheduler.RankTimeout)
	if err := sched.Register(rankJob, scheduler.NewIntervalSchedule(cfg.Scheduler.RankInterval)); err != nil {
		return fmt.Errorf("failed to register %s: %w", rankJob.Name(), err)
	}

	auditJob := jobs.NewAuditAggregatesJob(
		dbConn, levelRepo, passRepo, recomputeStats, leaderboardRepo, cache, eventBus, log,
		cfg.Scheduler.AuditTimeout)
	if err := sched.Register(auditJob, scheduler.NewIntervalSchedule(cfg.Scheduler.AuditInterval)); err != nil {
		return fmt.Errorf("failed to register %s: %w", auditJob.Name(), err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("TUF rankings worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("received shutdown signal", "signal", sig.String())

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
