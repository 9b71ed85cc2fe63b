// Package analyst implements the staged analysis pipeline: a question is
// classified, schema context is retrieved, a structured query is generated and
// executed, rows are aggregated client-side when the question asks for it, and
// the results are explained in natural language. Any stage fault is converted
// into a user-facing error message; nothing escapes Execute.
package analyst

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/meridianlabs/salescope/pkg/aggregate"
	"github.com/meridianlabs/salescope/pkg/config"
	"github.com/meridianlabs/salescope/pkg/llm"
	"github.com/meridianlabs/salescope/pkg/vectorstore"
)

const defaultTopK = 5

// Retriever performs similarity search over stored schema context.
type Retriever interface {
	SimilaritySearch(ctx context.Context, query string, k int) ([]vectorstore.Document, error)
}

// Executor runs a query descriptor against the data store and returns rows.
// Row values must be plain Go types; numbers arrive as float64.
type Executor interface {
	Execute(ctx context.Context, query QueryDescriptor) ([]map[string]any, error)
}

// SchemaFetcher retrieves a formatted description of the store's tables.
type SchemaFetcher interface {
	FetchSchema(ctx context.Context) (string, error)
}

// Config holds the configuration for the analysis workflow.
type Config struct {
	Logger    *slog.Logger
	LLM       llm.Completer
	Retriever Retriever
	Executor  Executor
	Schema    SchemaFetcher
	Prompts   *Prompts

	// Planner decides whether and how result rows are aggregated before
	// analysis. Defaults to the keyword planner.
	Planner aggregate.Planner

	// Collections maps collection names to human-readable descriptions used
	// in the generation prompt. Defaults to the stock sales collections.
	Collections map[string]string

	// FactTable is the canonical denormalized table targeted by fallback
	// queries.
	FactTable string

	// TopK is the similarity-search depth for context retrieval.
	TopK int

	// Clock supplies timestamps; a fake clock is injected in tests.
	Clock clockwork.Clock
}

// Workflow sequences the pipeline stages for one question at a time. A
// Workflow is safe for concurrent use; every Execute call owns its State.
type Workflow struct {
	cfg    *Config
	log    *slog.Logger
	engine *aggregate.Engine
}

// New creates a Workflow.
func New(cfg *Config) (*Workflow, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Prompts == nil {
		return nil, fmt.Errorf("prompts are required")
	}
	if cfg.Planner == nil {
		cfg.Planner = aggregate.NewDefaultPlanner()
	}
	if cfg.Collections == nil {
		cfg.Collections = DefaultCollectionDescriptions()
	}
	if cfg.FactTable == "" {
		cfg.FactTable = config.DefaultFactTable
	}
	if cfg.TopK == 0 {
		cfg.TopK = defaultTopK
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Workflow{
		cfg:    cfg,
		log:    cfg.Logger,
		engine: aggregate.NewEngine(cfg.Planner),
	}, nil
}

// Execute runs the full pipeline for a question and returns the terminal
// state. The terminal state always carries exactly one of Analysis or
// FriendlyError.
func (w *Workflow) Execute(ctx context.Context, question string) State {
	state := State{
		Question:  question,
		StartedAt: w.cfg.Clock.Now(),
	}

	state = w.understandQuery(ctx, state)
	state = w.retrieveContext(ctx, state)
	state = w.generateQuery(ctx, state)

	if state.Err == "" && state.Query != nil {
		state = w.executeQuery(ctx, state)
		state = w.analyzeResults(ctx, state)
	}

	if state.Err != "" {
		state = w.handleError(ctx, state)
	}

	return state
}

// executeQuery runs the generated descriptor through the executor adapter and
// replaces raw rows with the aggregated view when the question asks for one.
// Adapter panics are contained and converted to error state; retries, if any,
// are the adapter's responsibility.
func (w *Workflow) executeQuery(ctx context.Context, state State) State {
	start := w.cfg.Clock.Now()
	rows, err := w.runExecutor(ctx, *state.Query)
	if err != nil {
		if w.log != nil {
			w.log.Warn("analyst: query execution failed", "table", state.Query.Table, "error", err)
		}
		return state.withError(StepExecuteQuery, err.Error())
	}

	state.Rows = rows
	state.ExecutionSeconds = w.cfg.Clock.Since(start).Seconds()
	state = state.withStep(StepExecuteQuery)

	if w.log != nil {
		w.log.Info("analyst: query executed", "table", state.Query.Table, "rows", len(rows), "seconds", state.ExecutionSeconds)
	}

	if w.engine.NeedsAggregation(state.Question) {
		aggregated := w.engine.Aggregate(state.Rows, state.Question)
		if w.log != nil {
			w.log.Info("analyst: aggregated results", "before", len(state.Rows), "after", len(aggregated))
		}
		state.Rows = aggregated
	}

	return state
}

func (w *Workflow) runExecutor(ctx context.Context, query QueryDescriptor) (rows []map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("executor panic: %v", r)
		}
	}()
	return w.cfg.Executor.Execute(ctx, query)
}
