package analyst

import "time"

// Step labels recorded in State.StepsCompleted. Each executed stage appends
// exactly one label: its name on success, or the name with an "_error" suffix
// on failure. Stages skipped because of a prior error append nothing.
const (
	StepUnderstandQuery = "understand_query"
	StepRetrieveContext = "retrieve_context"
	StepGenerateQuery   = "generate_query"
	StepExecuteQuery    = "execute_query"
	StepAnalyzeResults  = "analyze_results"
	StepHandleError     = "handle_error"

	errorSuffix = "_error"
)

// Intent is the classified shape of a question.
type Intent struct {
	QueryType   string   `json:"type"`
	DataSources []string `json:"data_sources"`
	TimeFrame   string   `json:"time_frame"`
	Metrics     []string `json:"metrics"`
}

// ContextEntry is one retrieved schema/context snippet.
type ContextEntry struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QueryDescriptor is the structured representation of a data-access request
// generated from natural language.
type QueryDescriptor struct {
	Operation            string `json:"operation"`
	Table                string `json:"table_name"`
	KeyCondition         string `json:"key_condition,omitempty"`
	FilterExpression     string `json:"filter_expression,omitempty"`
	ProjectionExpression string `json:"projection_expression,omitempty"`
	Explanation          string `json:"explanation"`
}

// State is the value threaded through every pipeline stage. Stages never
// mutate a State in place: each stage returns a new value built from the
// previous one with only its own fields set.
type State struct {
	Question       string
	StartedAt      time.Time
	StepsCompleted []string

	Intent  *Intent
	Context []ContextEntry
	Query   *QueryDescriptor

	Rows             []map[string]any
	ExecutionSeconds float64

	Analysis      string
	Err           string
	FriendlyError string
}

// withStep returns a copy of the state with the step label appended. The steps
// slice is cloned so earlier State values are never aliased.
func (s State) withStep(label string) State {
	steps := make([]string, len(s.StepsCompleted), len(s.StepsCompleted)+1)
	copy(steps, s.StepsCompleted)
	s.StepsCompleted = append(steps, label)
	return s
}

// withError returns a copy of the state with the error set and the stage's
// error step label appended. The first error wins; it is never overwritten.
func (s State) withError(stage, msg string) State {
	if s.Err == "" {
		s.Err = "Error in " + stage + ": " + msg
	}
	return s.withStep(stage + errorSuffix)
}

// Result is the caller-facing view of a terminal pipeline state.
type Result struct {
	Question         string            `json:"question"`
	GeneratedQuery   *QueryDescriptor  `json:"generatedQuery,omitempty"`
	QueryResults     []map[string]any  `json:"queryResults,omitempty"`
	ExecutionSeconds float64           `json:"executionTime,omitempty"`
	Analysis         string            `json:"analysis,omitempty"`
	Error            string            `json:"error,omitempty"`
	FriendlyError    string            `json:"friendlyError,omitempty"`
	StepsCompleted   []string          `json:"stepsCompleted"`
}

// Result converts a terminal state into the caller-facing mapping.
func (s State) Result() Result {
	return Result{
		Question:         s.Question,
		GeneratedQuery:   s.Query,
		QueryResults:     s.Rows,
		ExecutionSeconds: s.ExecutionSeconds,
		Analysis:         s.Analysis,
		Error:            s.Err,
		FriendlyError:    s.FriendlyError,
		StepsCompleted:   s.StepsCompleted,
	}
}
