package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mirage-hunt/mirage/internal/adapters/http"
	"github.com/mirage-hunt/mirage/internal/adapters/memory"
	natsadapter "github.com/mirage-hunt/mirage/internal/adapters/nats"
	"github.com/mirage-hunt/mirage/internal/adapters/postgres"
	"github.com/mirage-hunt/mirage/internal/adapters/valkey"
	"github.com/mirage-hunt/mirage/internal/core/ports"
	"github.com/mirage-hunt/mirage/internal/core/usecases"
	"github.com/mirage-hunt/mirage/internal/pkg/config"
	"github.com/mirage-hunt/mirage/internal/pkg/logging"
	"github.com/mirage-hunt/mirage/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("mirage-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging, teed into the /logs buffer
	logs := logging.NewRingBuffer(cfg.Log.BufferSize)
	logging.Setup(cfg.Log.Level, cfg.Log.Format, logs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	deps := &http.Dependencies{DB: db, Logs: logs, Version: version}

	// Cache
	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr, "mirage"); err != nil {
		slog.Warn("valkey unavailable, team lookups go to the database", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
	}

	// NATS
	var events ports.EventPublisher
	if pub, err := natsadapter.NewPublisher(cfg.NATS.URL); err != nil {
		slog.Warn("nats unavailable, finds will not be broadcast", "error", err)
	} else {
		defer pub.Close()
		events = pub
		deps.Events = pub
	}

	// Raw NATS connection for the WebSocket relay
	if nc, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer nc.Close()
		deps.NATS = nc
	}

	// Repos
	questionRepo := postgres.NewQuestionRepo(db)
	teamRepo := postgres.NewTeamRepo(db)

	// Question set
	questions := memory.NewQuestionCache()
	syncer := usecases.NewSyncer(questions, questionRepo, cfg.Game.SyncInterval())
	if err := syncer.Seed(ctx); err != nil {
		log.Fatalf("seed questions: %v", err)
	}

	// Use cases
	teams := usecases.NewTeamDirectory(teamRepo, cache, cfg.Game.TeamCacheTTLSeconds, cfg.Game.TeamLookupTimeout())
	selector := usecases.NewTargetSelector()
	leaderboard := usecases.NewLeaderboardService(questions, teamRepo, cache, events, cfg.Game.PointsPerFind)

	deps.Verifier = usecases.NewAnswerVerifier(questions, teams, selector, events, cfg.Game.DistanceMeters)
	deps.Targets = usecases.NewTargetService(questions, teams, selector, cfg.Game.DistanceMeters, cfg.Game.NearbyRadiusMeters)
	deps.Leaderboard = leaderboard
	deps.Questions = questions

	syncer.OnFlush = func(ctx context.Context, persisted int) {
		if err := leaderboard.Broadcast(ctx); err != nil {
			slog.Warn("leaderboard broadcast failed", "error", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		syncer.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		db.ReportPoolStats(ctx, 15*time.Second)
	}()

	slog.Info("game configured",
		"distance_meters", cfg.Game.DistanceMeters,
		"questions", len(questions.All()),
		"sync_interval", cfg.Game.SyncInterval().String(),
	)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Mirage Hunt API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps, cfg.Server.RateLimitPerMinute)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Stop background loops; the syncer persists what is still pending.
	cancel()
	wg.Wait()

	slog.Info("server stopped")
}
