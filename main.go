package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vocabquiz/config"
	"vocabquiz/handlers"
	"vocabquiz/models"
	"vocabquiz/routes"
	"vocabquiz/services"
	"vocabquiz/store"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to read .env: %v", err)
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := config.InitLogger(cfg.Log)
	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live room state
	var roomStore store.RoomStore
	var redisClient *redis.Client
	switch cfg.Store.Driver {
	case "redis":
		redisClient, err = config.InitRedis(ctx, cfg.Redis)
		if err != nil {
			fatal(logger, "failed to connect to redis", err)
		}
		defer redisClient.Close()
		roomStore = store.NewRedisStore(redisClient, cfg.Game.RoomTTL)
	default:
		roomStore = store.NewMemoryStore()
	}

	// Vocabulary and result history
	var bank services.QuestionBank = services.NewStaticWordBank(services.DefaultWords())
	var sinks services.MultiSink
	var wordHandler *handlers.WordHandler
	if cfg.Database.Enabled {
		db, err := config.InitDB(cfg.Database)
		if err != nil {
			fatal(logger, "failed to connect to database", err)
		}
		if err := db.AutoMigrate(&models.Word{}, &models.GameResult{}); err != nil {
			fatal(logger, "failed to migrate database", err)
		}
		if err := services.SeedWords(db, services.DefaultWords()); err != nil {
			fatal(logger, "failed to seed words", err)
		}
		bank = services.NewGormWordBank(db)
		sinks = append(sinks, services.NewGormResultSink(db))
		wordHandler = handlers.NewWordHandler(services.NewWordService(db), logger)
	}

	if cfg.AMQP.Enabled {
		publisher, err := services.NewAMQPResultSink(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
		if err != nil {
			fatal(logger, "failed to connect to amqp", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	scorer, err := services.NewScorer(cfg.Game.Scoring)
	if err != nil {
		fatal(logger, "invalid scoring strategy", err)
	}

	machine := services.NewStateMachine(services.PhaseTimings{
		CountdownSeconds:  cfg.Game.CountdownSeconds,
		RevealHoldSeconds: cfg.Game.RevealHoldSeconds,
		RevealAutoAdvance: cfg.Game.RevealAutoAdvance,
		RankingSeconds:    cfg.Game.RankingSeconds,
	})

	tickets := services.NewTicketIssuer(cfg.JWT.Secret, cfg.JWT.TicketTTL)
	gameService := services.NewGameService(services.GameServiceConfig{
		Store:         roomStore,
		Bank:          bank,
		Registry:      services.NewRegistry(logger),
		Machine:       machine,
		Scorer:        scorer,
		Sink:          sinks,
		Tickets:       tickets,
		Logger:        logger,
		VerifyAnswers: cfg.Game.VerifyAnswers,
	})

	router := services.NewRouter(gameService, cfg.Server.RequestTimeout, logger)
	hub := services.NewHub(router, gameService, services.HubConfig{
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		SendBuffer:     cfg.WebSocket.SendBuffer,
	}, logger)
	go hub.Run(ctx)

	scheduler := services.NewScheduler(gameService, cfg.Game.TickInterval, cfg.Game.RoomTimeout, logger)
	go scheduler.Run(ctx)

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	gameHandler := handlers.NewGameHandler(gameService, hub, cfg.Server.PublicURL, cfg.Server.AllowedOrigins, logger)
	routes.SetupRoutes(engine, gameHandler, wordHandler, tickets, routes.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminKey:       cfg.Server.AdminKey,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: engine,
	}

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Driver, "database", cfg.Database.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
