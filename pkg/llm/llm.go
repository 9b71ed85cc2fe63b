// Package llm provides completion and embedding clients for the analysis
// pipeline. Two backends are supported: Amazon Bedrock and the Anthropic API.
package llm

import "context"

// Completer sends a prompt to a model and returns the response text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
