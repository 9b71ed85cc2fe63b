package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const maxRowsInPrompt = 10

// NoResultsAnalysis is the canned explanation for a query with zero rows.
// Zero rows is a normal outcome, not a fault, and costs no completion call.
const NoResultsAnalysis = "No results found for this query."

// analyzeResults turns the (possibly aggregated) rows plus the original
// question into a natural-language explanation.
func (w *Workflow) analyzeResults(ctx context.Context, state State) State {
	if state.Err != "" {
		return state
	}

	if len(state.Rows) == 0 {
		state.Analysis = NoResultsAnalysis
		return state.withStep(StepAnalyzeResults)
	}

	prompt := render(w.cfg.Prompts.Analyze, map[string]string{
		"QUESTION": state.Question,
		"QUERY":    formatQuery(state.Query),
		"RESULTS":  formatRows(state.Rows),
	})

	response, err := w.cfg.LLM.Complete(ctx, prompt)
	if err != nil {
		return state.withError(StepAnalyzeResults, err.Error())
	}

	state.Analysis = strings.TrimSpace(response)
	return state.withStep(StepAnalyzeResults)
}

func formatQuery(query *QueryDescriptor) string {
	if query == nil {
		return "{}"
	}
	data, err := json.MarshalIndent(query, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", query)
	}
	return string(data)
}

// formatRows serializes up to the first 10 rows, noting how many more exist.
func formatRows(rows []map[string]any) string {
	var sb strings.Builder
	limit := min(maxRowsInPrompt, len(rows))

	for i := 0; i < limit; i++ {
		data, err := json.Marshal(rows[i])
		if err != nil {
			sb.WriteString(fmt.Sprintf("%v", rows[i]))
		} else {
			sb.Write(data)
		}
		sb.WriteString("\n")
	}

	if len(rows) > maxRowsInPrompt {
		sb.WriteString(fmt.Sprintf("... and %d more rows", len(rows)-maxRowsInPrompt))
	}

	return strings.TrimSpace(sb.String())
}
