package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"newsrag/api"
	"newsrag/chat"
	"newsrag/config"
	"newsrag/embedding"
	"newsrag/extract"
	"newsrag/feed"
	"newsrag/generation"
	"newsrag/ingest"
	qdrantClient "newsrag/pkg/qdrantdb"
	"newsrag/pkg/redisdb"
	"newsrag/rag"
)

func main() {
	// =========
	// Config
	// =========
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	sources, err := config.LoadFeeds(cfg.FeedsPath)
	if err != nil {
		log.Fatalf("Failed to load feed sources: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// HTTP
	// =========
	httpClient := &http.Client{
		Transport: &http.Transport{
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
		},
	}

	// =========
	// Qdrant vector
	// =========
	qdb, err := qdrantClient.NewClient(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.Fatalf("Failed to initialize Qdrant: %v", err)
	}

	// =========
	// Redis
	// =========
	rdb := redisdb.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	// =========
	// Embedding / Generation clients
	// =========
	embedder := embedding.NewJina(cfg.JinaBaseURL, cfg.JinaAPIKey, cfg.EmbeddingModel)
	generator, err := generation.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GenerationModel)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini: %v", err)
	}
	defer generator.Close()

	// =========
	// Ingestion pipeline
	// =========
	tracker, err := ingest.NewSeenTracker(cfg.SeenDBPath)
	if err != nil {
		log.Fatalf("Failed to open seen tracker: %v", err)
	}
	defer tracker.Close()

	fetcher := feed.NewFetcher(httpClient, nil, logger)
	extractor := extract.NewExtractor(httpClient, nil, logger)
	pipeline := ingest.NewPipeline(sources, fetcher, extractor, embedder, qdb,
		tracker, nil, cfg.DevMode, cfg.IngestOnStartup, logger)

	if err := pipeline.Bootstrap(context.Background()); err != nil {
		logger.Fatal("failed to bootstrap vector collection", zap.Error(err))
	}
	go func() {
		stored, err := pipeline.MaybeIngest(context.Background())
		if err != nil {
			logger.Error("ingestion aborted", zap.Error(err))
			return
		}
		logger.Info("startup ingestion finished", zap.Int("stored", stored))
	}()

	// =========
	// Chat
	// =========
	store := chat.NewStore(rdb, logger)
	hub := chat.NewHub(logger)
	answerer := rag.NewPipeline(embedder, qdb, generator, rag.DefaultTopK, logger)
	orchestrator := chat.NewOrchestrator(store, answerer, hub, logger)
	defer orchestrator.Close()

	// =========
	// API server
	// =========
	server := api.NewServer(store, orchestrator, hub, qdb, logger, cfg.AppPort)
	log.Fatal(server.Start())
}
