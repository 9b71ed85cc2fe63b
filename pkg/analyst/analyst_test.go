package analyst

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianlabs/salescope/pkg/vectorstore"
)

// routedLLM dispatches completion calls to per-stage handlers based on the
// prompt template that produced them.
type routedLLM struct {
	onClassify func() (string, error)
	onGenerate func() (string, error)
	onAnalyze  func() (string, error)
	onError    func() (string, error)

	prompts []string
}

func (m *routedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	switch {
	case strings.Contains(prompt, "classify it"):
		if m.onClassify != nil {
			return m.onClassify()
		}
		return `{"type":"analysis","data_sources":["sales_transactions"],"time_frame":"not specified","metrics":["revenue"]}`, nil
	case strings.Contains(prompt, "NoSQL query generator"):
		if m.onGenerate != nil {
			return m.onGenerate()
		}
		return `{"operation":"scan","table_name":"sales_transactions","explanation":"full scan"}`, nil
	case strings.Contains(prompt, "Analyze these query results"):
		if m.onAnalyze != nil {
			return m.onAnalyze()
		}
		return "The data shows steady growth.", nil
	case strings.Contains(prompt, "error occurred while processing"):
		if m.onError != nil {
			return m.onError()
		}
		return "Something went wrong on our side. Please try again.", nil
	default:
		return "", fmt.Errorf("unexpected prompt: %.80s", prompt)
	}
}

func (m *routedLLM) promptFor(fragment string) string {
	for _, p := range m.prompts {
		if strings.Contains(p, fragment) {
			return p
		}
	}
	return ""
}

type mockRetriever struct {
	docs []vectorstore.Document
	err  error
}

func (m *mockRetriever) SimilaritySearch(ctx context.Context, query string, k int) ([]vectorstore.Document, error) {
	return m.docs, m.err
}

type mockExecutor struct {
	fn func(query QueryDescriptor) ([]map[string]any, error)
}

func (m *mockExecutor) Execute(ctx context.Context, query QueryDescriptor) ([]map[string]any, error) {
	if m.fn == nil {
		return nil, nil
	}
	return m.fn(query)
}

type staticSchema string

func (s staticSchema) FetchSchema(ctx context.Context) (string, error) {
	return string(s), nil
}

func newTestWorkflow(t *testing.T, llmClient *routedLLM, retriever Retriever, executor Executor, clock clockwork.Clock) *Workflow {
	t.Helper()
	prompts, err := LoadPrompts()
	require.NoError(t, err)

	w, err := New(&Config{
		LLM:       llmClient,
		Retriever: retriever,
		Executor:  executor,
		Schema:    staticSchema("Table: sales_transactions\nKey Schema: transaction_id (HASH)"),
		Prompts:   prompts,
		Clock:     clock,
	})
	require.NoError(t, err)
	return w
}

func schemaDocs() []vectorstore.Document {
	return []vectorstore.Document{
		{Text: "sales_transactions schema", Metadata: map[string]string{"type": "schema"}},
	}
}

func assertTerminal(t *testing.T, state State) {
	t.Helper()
	hasAnalysis := state.Analysis != ""
	hasFriendly := state.FriendlyError != ""
	assert.True(t, hasAnalysis != hasFriendly,
		"terminal state must have exactly one of analysis (%q) and friendlyError (%q)",
		state.Analysis, state.FriendlyError)
}

func TestExecuteHappyPath(t *testing.T) {
	clock := clockwork.NewFakeClock()
	executor := &mockExecutor{fn: func(query QueryDescriptor) ([]map[string]any, error) {
		clock.Advance(1500 * time.Millisecond)
		return []map[string]any{
			{"customer_name": "Acme", "line_total": 42.0},
		}, nil
	}}
	llmClient := &routedLLM{}

	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, executor, clock)
	state := w.Execute(context.Background(), "Show me customer Acme")

	assertTerminal(t, state)
	assert.Equal(t, "The data shows steady growth.", state.Analysis)
	assert.Empty(t, state.Err)
	assert.Equal(t, []string{
		StepUnderstandQuery, StepRetrieveContext, StepGenerateQuery,
		StepExecuteQuery, StepAnalyzeResults,
	}, state.StepsCompleted)

	require.NotNil(t, state.Intent)
	assert.Equal(t, "analysis", state.Intent.QueryType)
	require.NotNil(t, state.Query)
	assert.Equal(t, "scan", state.Query.Operation)
	assert.Equal(t, "sales_transactions", state.Query.Table)
	require.Len(t, state.Rows, 1)
	assert.InDelta(t, 1.5, state.ExecutionSeconds, 1e-9)
}

func TestExecuteDefaultsIntentOnMalformedClassification(t *testing.T) {
	llmClient := &routedLLM{
		onClassify: func() (string, error) { return "this is not JSON at all", nil },
	}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	require.NotNil(t, state.Intent)
	assert.Equal(t, "analysis", state.Intent.QueryType)
	assert.Equal(t, "not specified", state.Intent.TimeFrame)
	assert.Contains(t, state.StepsCompleted, StepUnderstandQuery)
	assertTerminal(t, state)
}

func TestExecuteClassifyTransportFault(t *testing.T) {
	llmClient := &routedLLM{
		onClassify: func() (string, error) { return "", fmt.Errorf("service unavailable") },
	}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "anything")

	assertTerminal(t, state)
	assert.Contains(t, state.Err, "understand_query")
	assert.NotEmpty(t, state.FriendlyError)
	// Skipped stages must not appear in the trace.
	assert.Equal(t, []string{StepUnderstandQuery + "_error", StepHandleError}, state.StepsCompleted)
}

func TestExecuteFallbackDescriptorOnMalformedGeneration(t *testing.T) {
	llmClient := &routedLLM{
		onGenerate: func() (string, error) { return "I think you should scan the table", nil },
	}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	require.NotNil(t, state.Query)
	assert.Equal(t, "scan", state.Query.Operation)
	assert.Equal(t, "sales_transactions", state.Query.Table)
	assert.NotEmpty(t, state.Query.Explanation)
	assert.Empty(t, state.Err)
	assertTerminal(t, state)
}

func TestExecuteFallbackDescriptorOnGenerationFault(t *testing.T) {
	llmClient := &routedLLM{
		onGenerate: func() (string, error) { return "", fmt.Errorf("throttled") },
	}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	require.NotNil(t, state.Query)
	assert.Equal(t, "scan", state.Query.Operation)
	assert.Empty(t, state.Err)
	assert.Contains(t, state.StepsCompleted, StepGenerateQuery)
}

func TestExecuteStripsCodeFencesFromGeneration(t *testing.T) {
	llmClient := &routedLLM{
		onGenerate: func() (string, error) {
			return "```json\n{\"operation\":\"query\",\"table_name\":\"customers\",\"key_condition\":\"customer_id = :id\",\"explanation\":\"keyed lookup\"}\n```", nil
		},
	}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	require.NotNil(t, state.Query)
	assert.Equal(t, "query", state.Query.Operation)
	assert.Equal(t, "customers", state.Query.Table)
	assert.Equal(t, "customer_id = :id", state.Query.KeyCondition)
}

func TestExecuteFallbackContextOnEmptyIndex(t *testing.T) {
	llmClient := &routedLLM{}
	w := newTestWorkflow(t, llmClient, &mockRetriever{}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	require.Len(t, state.Context, 1)
	assert.Contains(t, state.Context[0].Text, "sales_transactions")
	assert.Contains(t, state.StepsCompleted, StepRetrieveContext)
	assertTerminal(t, state)
}

func TestExecuteRetrieverFault(t *testing.T) {
	llmClient := &routedLLM{}
	retriever := &mockRetriever{err: fmt.Errorf("index unreachable")}
	w := newTestWorkflow(t, llmClient, retriever, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	assertTerminal(t, state)
	assert.Contains(t, state.Err, "retrieve_context")
	assert.Equal(t, []string{
		StepUnderstandQuery, StepRetrieveContext + "_error", StepHandleError,
	}, state.StepsCompleted)
}

func TestExecuteExecutorFault(t *testing.T) {
	llmClient := &routedLLM{}
	executor := &mockExecutor{fn: func(query QueryDescriptor) ([]map[string]any, error) {
		return nil, fmt.Errorf("table not found")
	}}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, executor, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	assertTerminal(t, state)
	assert.Contains(t, state.Err, "table not found")
	assert.NotEmpty(t, state.FriendlyError)
	assert.Contains(t, state.StepsCompleted, StepExecuteQuery+"_error")
	assert.NotContains(t, state.StepsCompleted, StepAnalyzeResults)
}

func TestExecuteContainsExecutorPanic(t *testing.T) {
	llmClient := &routedLLM{}
	executor := &mockExecutor{fn: func(query QueryDescriptor) ([]map[string]any, error) {
		panic("adapter blew up")
	}}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, executor, clockwork.NewFakeClock())

	var state State
	require.NotPanics(t, func() {
		state = w.Execute(context.Background(), "Show me customer Acme")
	})
	assertTerminal(t, state)
	assert.Contains(t, state.Err, "adapter blew up")
}

func TestExecuteEmptyRowsSkipsAnalysisCall(t *testing.T) {
	llmClient := &routedLLM{
		onAnalyze: func() (string, error) {
			return "", fmt.Errorf("analyze must not be called for empty rows")
		},
	}
	executor := &mockExecutor{fn: func(query QueryDescriptor) ([]map[string]any, error) {
		return nil, nil
	}}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, executor, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")

	assert.Equal(t, NoResultsAnalysis, state.Analysis)
	assert.Empty(t, state.Err)
	assert.Empty(t, llmClient.promptFor("Analyze these query results"))
	assertTerminal(t, state)
}

func TestExecuteStaticFallbackWhenErrorHandlerFaults(t *testing.T) {
	llmClient := &routedLLM{
		onClassify: func() (string, error) { return "", fmt.Errorf("completion service down") },
		onError:    func() (string, error) { return "", fmt.Errorf("still down") },
	}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "anything")

	assertTerminal(t, state)
	assert.Contains(t, state.FriendlyError, "Sorry, an error occurred")
	assert.Contains(t, state.FriendlyError, "Please try rephrasing your question.")
}

func TestExecuteAggregatesBeforeAnalysis(t *testing.T) {
	llmClient := &routedLLM{}
	executor := &mockExecutor{fn: func(query QueryDescriptor) ([]map[string]any, error) {
		return []map[string]any{
			{"product_name": "A", "line_total": "10"},
			{"product_name": "A", "line_total": "5"},
			{"product_name": "B", "line_total": "7"},
		}, nil
	}}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, executor, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Which products generate the most revenue?")

	require.Len(t, state.Rows, 2)
	assert.Equal(t, 15.0, state.Rows[0]["sum_line_total"])
	assert.Equal(t, 7.0, state.Rows[1]["sum_line_total"])

	// The analysis stage must see the aggregated shape, not the raw rows.
	analyzePrompt := llmClient.promptFor("Analyze these query results")
	require.NotEmpty(t, analyzePrompt)
	assert.Contains(t, analyzePrompt, "sum_line_total")
	assertTerminal(t, state)
}

func TestExecuteStateValuesAreIndependent(t *testing.T) {
	llmClient := &routedLLM{}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, &mockExecutor{}, clockwork.NewFakeClock())

	first := w.Execute(context.Background(), "first question")
	second := w.Execute(context.Background(), "second question")

	assert.Equal(t, "first question", first.Question)
	assert.Equal(t, "second question", second.Question)
	assert.NotSame(t, &first.StepsCompleted[0], &second.StepsCompleted[0])
}

func TestResultMapping(t *testing.T) {
	llmClient := &routedLLM{}
	executor := &mockExecutor{fn: func(query QueryDescriptor) ([]map[string]any, error) {
		return []map[string]any{{"customer_name": "Acme"}}, nil
	}}
	w := newTestWorkflow(t, llmClient, &mockRetriever{docs: schemaDocs()}, executor, clockwork.NewFakeClock())

	state := w.Execute(context.Background(), "Show me customer Acme")
	result := state.Result()

	assert.Equal(t, state.Question, result.Question)
	assert.Equal(t, state.Query, result.GeneratedQuery)
	assert.Equal(t, state.Rows, result.QueryResults)
	assert.Equal(t, state.Analysis, result.Analysis)
	assert.Equal(t, state.StepsCompleted, result.StepsCompleted)
	assert.Empty(t, result.Error)
	assert.Empty(t, result.FriendlyError)
}
