package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/meridianlabs/salescope/pkg/analyst"
	"github.com/meridianlabs/salescope/pkg/config"
	"github.com/meridianlabs/salescope/pkg/dynamo"
	"github.com/meridianlabs/salescope/pkg/history"
	"github.com/meridianlabs/salescope/pkg/llm"
	"github.com/meridianlabs/salescope/pkg/vectorstore"
)

// components holds the wired application pieces shared by the ask and serve
// commands.
type components struct {
	workflow *analyst.Workflow
	history  *history.Log
	store    *vectorstore.Store
}

// buildComponents wires the LLM clients, vector store, DynamoDB adapters, and
// the workflow, then seeds the similarity index with the sales schema.
func buildComponents(ctx context.Context, log *slog.Logger, cfg config.Config) (*components, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	bedrock := llm.NewBedrockClient(awsCfg, cfg.CompletionModel, cfg.EmbeddingModel, cfg.MaxTokens)

	var completer llm.Completer = bedrock
	if cfg.AnthropicAPIKey != "" {
		log.Info("using Anthropic completion backend", "model", cfg.AnthropicModel)
		completer = llm.NewAnthropicClient(anthropic.Model(cfg.AnthropicModel), cfg.MaxTokens)
	}

	store := vectorstore.New(bedrock)
	if err := vectorstore.SeedSalesSchema(ctx, store); err != nil {
		// Retrieval falls back to the static collection list when the
		// index is empty, so seeding failure is not fatal.
		log.Warn("failed to seed vector store, retrieval will use fallback context", "error", err)
	}

	prompts, err := analyst.LoadPrompts()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	workflow, err := analyst.New(&analyst.Config{
		Logger:    log,
		LLM:       completer,
		Retriever: store,
		Executor:  dynamo.NewExecutor(awsCfg, cfg.TablePrefix, log),
		Schema:    dynamo.NewSchemaFetcher(awsCfg, cfg.TablePrefix, cfg.SchemaCacheTTL, log),
		Prompts:   prompts,
		FactTable: cfg.FactTable,
		TopK:      cfg.SimilarityTopK,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return &components{
		workflow: workflow,
		history:  history.New(),
		store:    store,
	}, nil
}
