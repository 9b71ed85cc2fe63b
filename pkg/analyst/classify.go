package analyst

import (
	"context"
	"encoding/json"
	"strings"
)

// understandQuery classifies the question into a structured intent. Malformed
// model output is not an error: the default intent substitutes. Only a
// completion transport fault sets the error state.
func (w *Workflow) understandQuery(ctx context.Context, state State) State {
	if state.Err != "" {
		return state
	}

	prompt := render(w.cfg.Prompts.Classify, map[string]string{
		"QUESTION": state.Question,
	})

	response, err := w.cfg.LLM.Complete(ctx, prompt)
	if err != nil {
		return state.withError(StepUnderstandQuery, err.Error())
	}

	intent, err := parseIntent(response)
	if err != nil {
		if w.log != nil {
			w.log.Debug("analyst: intent parse failed, using default", "error", err)
		}
		intent = defaultIntent()
	}

	state.Intent = intent
	return state.withStep(StepUnderstandQuery)
}

func parseIntent(response string) (*Intent, error) {
	var intent Intent
	if err := json.Unmarshal([]byte(stripCodeFences(response)), &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func defaultIntent() *Intent {
	return &Intent{
		QueryType:   "analysis",
		DataSources: []string{},
		TimeFrame:   "not specified",
		Metrics:     []string{},
	}
}

// stripCodeFences removes a leading ```json (or bare ```) and trailing ```
// wrapper from a model response.
func stripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
