package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/relayforge/knowbase/internal/auth"
	rediscache "github.com/relayforge/knowbase/internal/cache/redis"
	"github.com/relayforge/knowbase/internal/chunker"
	"github.com/relayforge/knowbase/internal/crawler"
	"github.com/relayforge/knowbase/internal/embedding"
	"github.com/relayforge/knowbase/internal/httpapi"
	"github.com/relayforge/knowbase/internal/ingestion"
	"github.com/relayforge/knowbase/internal/llmprovider"
	"github.com/relayforge/knowbase/internal/metrics"
	"github.com/relayforge/knowbase/internal/middleware/security"
	"github.com/relayforge/knowbase/internal/middleware/validation"
	"github.com/relayforge/knowbase/internal/objectstore"
	"github.com/relayforge/knowbase/internal/parsers"
	"github.com/relayforge/knowbase/internal/queryengine"
	"github.com/relayforge/knowbase/internal/ratelimiter"
	"github.com/relayforge/knowbase/internal/storage/postgres"
	"github.com/relayforge/knowbase/internal/tokenizer"
	"github.com/relayforge/knowbase/internal/widgettoken"
	"github.com/relayforge/knowbase/pkg/config"
	appLogger "github.com/relayforge/knowbase/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting knowbase API server")

	ctx := context.Background()

	store, err := postgres.NewStore(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns, cfg.Postgres.VectorDim)
	if err != nil {
		appLogger.Fatal("Failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()

	if err := store.InitSchema(ctx); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	redisClient, err := rediscache.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		appLogger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	var objects objectstore.Store
	if cfg.ObjectStore.Endpoint != "" && cfg.ObjectStore.AccessKey != "" {
		minioStore, err := objectstore.NewMinioStore(
			cfg.ObjectStore.Endpoint, cfg.ObjectStore.AccessKey, cfg.ObjectStore.SecretKey,
			cfg.ObjectStore.Bucket, cfg.ObjectStore.UseSSL,
		)
		if err != nil {
			appLogger.Fatal("Failed to create object store client", zap.Error(err))
		}
		objects = minioStore
	} else {
		appLogger.Warn("Object store credentials not set, using in-memory store")
		objects = objectstore.NewMemoryStore()
	}

	embeddingTimeout := time.Duration(cfg.Embedding.TimeoutSec) * time.Second
	openaiEmbedder := embedding.NewOpenAIProvider(cfg.Embedding.OpenAIAPIKey, cfg.Embedding.Model, cfg.Embedding.Dimension, embeddingTimeout)
	geminiEmbedder, err := embedding.NewGeminiProvider(ctx, cfg.Embedding.GeminiAPIKey, cfg.Embedding.GeminiModel, cfg.Embedding.Dimension, embeddingTimeout)
	if err != nil {
		appLogger.Fatal("Failed to create gemini embedding provider", zap.Error(err))
	}
	embeddingOrchestrator := embedding.NewOrchestrator(openaiEmbedder, geminiEmbedder)
	embedder := embedding.NewCachingEmbedder(embeddingOrchestrator, redisClient)

	llmTimeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second
	openaiLLM := llmprovider.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, cfg.LLM.Model, cfg.LLM.Temperature, cfg.LLM.MaxTokens, llmTimeout)
	geminiLLM, err := llmprovider.NewGeminiProvider(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, cfg.LLM.Temperature, cfg.LLM.MaxTokens, llmTimeout)
	if err != nil {
		appLogger.Fatal("Failed to create gemini completion provider", zap.Error(err))
	}
	llmOrchestrator := llmprovider.NewOrchestrator(openaiLLM, geminiLLM)

	tokenCounter := tokenizer.New()
	textChunker := chunker.New(tokenCounter, cfg.Embedding.Model)
	webCrawler := crawler.New(time.Duration(cfg.Ingestion.FetchTimeoutSec) * time.Second)
	parserFactory := parsers.NewFactory()

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	widgetTokens := widgettoken.New(store)
	limiter := ratelimiter.New(redisClient.Raw())

	coordinator := ingestion.New(store, objects, parserFactory, webCrawler, textChunker, embedder,
		cfg.Ingestion.Concurrency, 256)
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	coordinator.Start(workerCtx)

	engine := queryengine.New(store, embedder, llmOrchestrator, tokenCounter)

	metrics.Init()

	botHandler := httpapi.NewBotHandler(store)
	sourceHandler := httpapi.NewSourceHandler(store, store, objects, coordinator)
	tokenHandler := httpapi.NewWidgetTokenHandler(store, widgetTokens, store)
	queryHandler := httpapi.NewQueryHandler(store, engine, limiter, cfg.RateLimit.DefaultPerMinute)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(security.HeadersMiddleware(security.HeadersConfig{IsDevelopment: cfg.Logging.Level == "debug"}))
	app.Use(validation.Middleware(validation.Config{}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	httpapi.Register(app, verifier, widgetTokens, botHandler, sourceHandler, tokenHandler, queryHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	cancelWorkers()
	_ = app.Shutdown()
	appLogger.Info("Server stopped")
}
