package analyst

import (
	"fmt"
	"strings"

	"github.com/meridianlabs/salescope/pkg/analyst/prompts"
)

// Prompts contains the pipeline prompt templates loaded from embedded files.
type Prompts struct {
	Classify string // question classification
	Generate string // query descriptor generation
	Analyze  string // result analysis
	Error    string // user-friendly error rewriting
}

// LoadPrompts loads all prompt templates from the embedded filesystem.
func LoadPrompts() (*Prompts, error) {
	p := &Prompts{}

	var err error
	if p.Classify, err = loadPrompt("CLASSIFY.md"); err != nil {
		return nil, fmt.Errorf("failed to load CLASSIFY: %w", err)
	}
	if p.Generate, err = loadPrompt("GENERATE.md"); err != nil {
		return nil, fmt.Errorf("failed to load GENERATE: %w", err)
	}
	if p.Analyze, err = loadPrompt("ANALYZE.md"); err != nil {
		return nil, fmt.Errorf("failed to load ANALYZE: %w", err)
	}
	if p.Error, err = loadPrompt("ERROR.md"); err != nil {
		return nil, fmt.Errorf("failed to load ERROR: %w", err)
	}

	return p, nil
}

func loadPrompt(path string) (string, error) {
	data, err := prompts.FS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// render substitutes {{NAME}} placeholders in a prompt template.
func render(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
