package config

import (
	"fmt"
	"os"
	"strconv"
)

// IngestPolicy controls whether ingestion runs at startup.
type IngestPolicy string

const (
	IngestAlways IngestPolicy = "always"
	IngestEmpty  IngestPolicy = "empty"
	IngestNever  IngestPolicy = "never"
)

type Config struct {
	AppPort int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QdrantHost string
	QdrantPort int

	JinaAPIKey     string
	JinaBaseURL    string
	EmbeddingModel string

	GeminiAPIKey    string
	GenerationModel string

	FeedsPath  string
	SeenDBPath string

	DevMode         bool
	IngestOnStartup IngestPolicy
}

func Load() (*Config, error) {
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	qdrantPort, err := strconv.Atoi(getEnv("QDRANT_PORT", "6334"))
	if err != nil {
		return nil, fmt.Errorf("invalid QDRANT_PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	policy := IngestPolicy(getEnv("INGEST_ON_STARTUP", string(IngestEmpty)))
	switch policy {
	case IngestAlways, IngestEmpty, IngestNever:
	default:
		return nil, fmt.Errorf("invalid INGEST_ON_STARTUP: %q", policy)
	}

	return &Config{
		AppPort:         appPort,
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,
		QdrantHost:      getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:      qdrantPort,
		JinaAPIKey:      mustEnv("JINA_API_KEY"),
		JinaBaseURL:     getEnv("JINA_BASE_URL", "https://api.jina.ai/v1"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "jina-embeddings-v2-base-en"),
		GeminiAPIKey:    mustEnv("GEMINI_API_KEY"),
		GenerationModel: getEnv("GENERATION_MODEL", "gemini-2.0-flash"),
		FeedsPath:       getEnv("FEEDS_PATH", "config/feeds.yaml"),
		SeenDBPath:      getEnv("SEEN_DB_PATH", "data/seen.db"),
		DevMode:         os.Getenv("APP_ENV") == "development",
		IngestOnStartup: policy,
	}, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Fprintf(os.Stderr, "Environment variable %s is required but not set\n", key)
		os.Exit(1)
	}
	return value
}
