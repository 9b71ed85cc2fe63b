package analyst

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// generateQuery turns the question plus retrieved context into a structured
// query descriptor. Generation never fails the pipeline: on any parse failure
// or completion fault, the deterministic fallback scan descriptor substitutes
// so execution always has some query to attempt.
func (w *Workflow) generateQuery(ctx context.Context, state State) State {
	if state.Err != "" {
		return state
	}

	prompt := render(w.cfg.Prompts.Generate, map[string]string{
		"SCHEMA":   w.buildSchemaContext(ctx),
		"CONTEXT":  contextText(state.Context),
		"QUESTION": state.Question,
	})

	response, err := w.cfg.LLM.Complete(ctx, prompt)
	if err != nil {
		if w.log != nil {
			w.log.Warn("analyst: query generation failed, using fallback scan", "error", err)
		}
		state.Query = w.fallbackQuery()
		return state.withStep(StepGenerateQuery)
	}

	query, err := parseQueryDescriptor(response)
	if err != nil {
		if w.log != nil {
			w.log.Debug("analyst: descriptor parse failed, using fallback scan", "error", err)
		}
		query = w.fallbackQuery()
	}

	state.Query = query
	return state.withStep(StepGenerateQuery)
}

// parseQueryDescriptor extracts a descriptor from the model response, stripping
// Markdown code fences first.
func parseQueryDescriptor(response string) (*QueryDescriptor, error) {
	var query QueryDescriptor
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &query); err != nil {
		return nil, err
	}
	return &query, nil
}

// fallbackQuery is the deterministic full-scan descriptor used whenever
// generation produces unusable output.
func (w *Workflow) fallbackQuery() *QueryDescriptor {
	return &QueryDescriptor{
		Operation:   "scan",
		Table:       w.cfg.FactTable,
		Explanation: "Scanning denormalized sales transactions table for analysis",
	}
}

// buildSchemaContext combines the fetched table schema with the injected
// collection descriptions. A schema-fetch fault degrades to descriptions only;
// generation proceeds either way.
func (w *Workflow) buildSchemaContext(ctx context.Context) string {
	var sb strings.Builder

	if w.cfg.Schema != nil {
		schema, err := w.cfg.Schema.FetchSchema(ctx)
		if err != nil {
			if w.log != nil {
				w.log.Warn("analyst: schema fetch failed, generating without table schema", "error", err)
			}
		} else if schema != "" {
			sb.WriteString(schema)
			sb.WriteString("\n")
		}
	}

	names := make([]string, 0, len(w.cfg.Collections))
	for name := range w.cfg.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString("- ")
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(w.cfg.Collections[name])
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String())
}

func contextText(entries []ContextEntry) string {
	if len(entries) == 0 {
		return "(none)"
	}
	texts := make([]string, 0, len(entries))
	for _, entry := range entries {
		texts = append(texts, entry.Text)
	}
	return strings.Join(texts, "\n---\n")
}
