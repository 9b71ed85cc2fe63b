// Package config loads salescope configuration from the environment.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DefaultFactTable is the denormalized sales table every fallback query targets.
	DefaultFactTable = "sales_transactions"

	defaultRegion           = "us-east-1"
	defaultCompletionModel  = "amazon.nova-pro-v1:0"
	defaultEmbeddingModel   = "amazon.titan-embed-text-v2:0"
	defaultListenAddr       = "0.0.0.0:8080"
	defaultSchemaCacheTTL   = time.Hour
	defaultMaxTokens        = 4096
	defaultSimilarityTopK   = 5
	defaultShutdownTimeout  = 10 * time.Second
)

// Config holds runtime configuration for the salescope binaries.
type Config struct {
	AWSRegion       string
	CompletionModel string
	EmbeddingModel  string
	FactTable       string
	TablePrefix     string
	ListenAddr      string
	SchemaCacheTTL  time.Duration
	MaxTokens       int64
	SimilarityTopK  int
	ShutdownTimeout time.Duration

	// AnthropicAPIKey switches the completion backend from Bedrock to the
	// Anthropic API when set.
	AnthropicAPIKey string
	AnthropicModel  string
}

// Load reads configuration from the environment, loading a .env file first if
// one exists.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AWSRegion:       getenv("AWS_REGION", defaultRegion),
		CompletionModel: getenv("SALESCOPE_COMPLETION_MODEL", defaultCompletionModel),
		EmbeddingModel:  getenv("SALESCOPE_EMBEDDING_MODEL", defaultEmbeddingModel),
		FactTable:       getenv("SALESCOPE_FACT_TABLE", DefaultFactTable),
		TablePrefix:     os.Getenv("DYNAMODB_TABLE_PREFIX"),
		ListenAddr:      getenv("SALESCOPE_LISTEN_ADDR", defaultListenAddr),
		SchemaCacheTTL:  defaultSchemaCacheTTL,
		MaxTokens:       defaultMaxTokens,
		SimilarityTopK:  defaultSimilarityTopK,
		ShutdownTimeout: defaultShutdownTimeout,
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getenv("SALESCOPE_ANTHROPIC_MODEL", "claude-sonnet-4-5"),
	}

	if ttl := os.Getenv("SALESCOPE_SCHEMA_CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.SchemaCacheTTL = d
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
