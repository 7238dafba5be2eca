// Package main - точка входа HTTP-сервиса рейтингов TUF.
//
// Сервис отвечает за синхронную половину подсистемы агрегации:
// - Приём прохождений, голосов и лайков через REST API
// - Чтение лидерборда с тегированным кешем
// - Хуки изменений для соседних подсистем
//
// Асинхронная половина (пересчёт статистики, переназначение рангов)
// живёт на шине событий внутри этого же процесса; полная сверка
// агрегатов выполняется отдельным воркером (cmd/worker).
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
	"github.com/tuforums/tuf-rankings/internal/application/eventhandler"
	"github.com/tuforums/tuf-rankings/internal/application/query"
	"github.com/tuforums/tuf-rankings/internal/domain/leaderboard"
	"github.com/tuforums/tuf-rankings/internal/domain/shared"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/external/identity"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/messaging"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/postgres"
	"github.com/tuforums/tuf-rankings/internal/infrastructure/persistence/redis"
	httpapi "github.com/tuforums/tuf-rankings/internal/interface/http"
	"github.com/tuforums/tuf-rankings/pkg/logger"
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
	log.Info("starting TUF rankings server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
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
	// 4. ЗАПУСК МИГРАЦИЙ
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
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
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
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = true
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ИНИЦИАЛИЗАЦИЯ ВНЕШНИХ КЛИЕНТОВ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing identity client...")
	idCfg := identity.DefaultClientConfig(cfg.Identity.BaseURL)
	idCfg.Token = cfg.Identity.Token
	idCfg.Timeout = cfg.Identity.Timeout
	idCfg.RateLimiterConfig = identity.RateLimiterConfig{
		RequestsPerSecond: cfg.Identity.RateLimit,
		BurstSize:         cfg.Identity.RateBurst,
	}
	idCfg.Logger = log
	identityClient := identity.NewClient(idCfg)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. КОМАНДЫ И ЗАПРОСЫ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing application handlers...")
	submitPass := command.NewSubmitPassHandler(dbConn, passRepo, levelRepo, cfg.Scoring, eventBus)
	updatePass := command.NewUpdatePassHandler(dbConn, passRepo, levelRepo, cfg.Scoring, eventBus)
	deletePass := command.NewDeletePassHandler(dbConn, passRepo, levelRepo, eventBus)
	castVote := command.NewCastVoteHandler(dbConn, levelRepo, eventBus)
	toggleLike := command.NewToggleLikeHandler(dbConn, levelRepo, eventBus)
	recomputeStats := command.NewRecomputeStatsHandler(
		passRepo, playerRepo, cfg.Scoring, eventBus, cfg.Scheduler.RecomputeRetries, log)

	getLeaderboard := query.NewGetLeaderboardHandler(leaderboardRepo, playerRepo, identityClient, cache, log)
	getMaxFields := query.NewGetMaxFieldsHandler(leaderboardRepo, cache, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. ПОДПИСКА ОБРАБОТЧИКОВ СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	onPassChanged := eventhandler.NewOnPassChangedHandler(recomputeStats, leaderboardRepo, cache, log)
	for _, eventType := range []shared.EventType{
		shared.EventPassCreated,
		shared.EventPassUpdated,
		shared.EventPassDeleted,
		shared.EventPassRestored,
	} {
		if err := eventBus.Subscribe(eventType, onPassChanged); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", eventType, err)
		}
	}
	if err := eventBus.Subscribe(shared.EventVoteChanged, eventhandler.NewOnVoteChangedHandler(cache, log)); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", shared.EventVoteChanged, err)
	}
	if err := eventBus.Subscribe(shared.EventLikeChanged, eventhandler.NewOnLikeChangedHandler(cache, log)); err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", shared.EventLikeChanged, err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.EnableCORS = cfg.HTTP.EnableCORS
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.APIKeyHashes = cfg.HTTP.APIKeyHashes

	httpLogLevel := logger.LevelInfo
	if cfg.App.Debug {
		httpLogLevel = logger.LevelDebug
	}
	httpLog := logger.New(logger.Options{Output: os.Stdout, Level: httpLogLevel})

	server := httpapi.NewServer(httpCfg, httpapi.Dependencies{
		GetLeaderboardHandler: getLeaderboard,
		GetMaxFieldsHandler:   getMaxFields,
		SubmitPassHandler:     submitPass,
		UpdatePassHandler:     updatePass,
		DeletePassHandler:     deletePass,
		CastVoteHandler:       castVote,
		ToggleLikeHandler:     toggleLike,
		PassRepo:              passRepo,
		Publisher:             eventBus,
		DB:                    dbConn,
		Logger:                httpLog,
	})

	serverErr := server.StartAsync()
	log.Info("TUF rankings server is running", "address", server.Address())

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
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
		// JSON формат для production (лучше для агрегаторов логов)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Текстовый формат для development (лучше читается)
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
