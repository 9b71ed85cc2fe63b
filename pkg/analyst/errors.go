package analyst

import (
	"context"
	"strings"
)

// handleError converts the internal error into a user-facing message via one
// completion call. If that call itself faults, a static template substitutes.
// This stage is the pipeline's terminal safety net and never fails.
func (w *Workflow) handleError(ctx context.Context, state State) State {
	prompt := render(w.cfg.Prompts.Error, map[string]string{
		"QUESTION": state.Question,
		"ERROR":    state.Err,
	})

	friendly, err := w.cfg.LLM.Complete(ctx, prompt)
	if err != nil {
		if w.log != nil {
			w.log.Warn("analyst: friendly error generation failed, using static fallback", "error", err)
		}
		friendly = "Sorry, an error occurred: " + state.Err + ". Please try rephrasing your question."
	}

	state.FriendlyError = strings.TrimSpace(friendly)
	return state.withStep(StepHandleError)
}
