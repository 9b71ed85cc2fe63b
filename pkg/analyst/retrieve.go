package analyst

import (
	"context"
	"sort"
	"strings"
)

// retrieveContext fetches the most relevant schema snippets for the question.
// An empty index is not an error: a fallback entry naming the known
// collections substitutes so the pipeline can proceed before the index is
// populated. A transport fault sets the error state.
func (w *Workflow) retrieveContext(ctx context.Context, state State) State {
	if state.Err != "" {
		return state
	}

	docs, err := w.cfg.Retriever.SimilaritySearch(ctx, state.Question, w.cfg.TopK)
	if err != nil {
		return state.withError(StepRetrieveContext, err.Error())
	}

	if len(docs) == 0 {
		state.Context = []ContextEntry{{Text: w.fallbackContext()}}
		if w.log != nil {
			w.log.Debug("analyst: empty index, using fallback context")
		}
		return state.withStep(StepRetrieveContext)
	}

	entries := make([]ContextEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, ContextEntry{Text: doc.Text, Metadata: doc.Metadata})
	}
	state.Context = entries
	return state.withStep(StepRetrieveContext)
}

func (w *Workflow) fallbackContext() string {
	names := make([]string, 0, len(w.cfg.Collections)+1)
	names = append(names, w.cfg.FactTable)
	for name := range w.cfg.Collections {
		if name != w.cfg.FactTable {
			names = append(names, name)
		}
	}
	sort.Strings(names[1:])
	return "Use tables: " + strings.Join(names, ", ")
}
