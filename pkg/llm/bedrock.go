package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockClient implements Completer and Embedder using the Bedrock runtime API.
type BedrockClient struct {
	client          *bedrockruntime.Client
	completionModel string
	embeddingModel  string
	maxTokens       int64
}

// NewBedrockClient creates a Bedrock-backed client.
func NewBedrockClient(cfg aws.Config, completionModel, embeddingModel string, maxTokens int64) *BedrockClient {
	return &BedrockClient{
		client:          bedrockruntime.NewFromConfig(cfg),
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		maxTokens:       maxTokens,
	}
}

// Complete sends a prompt to the completion model and returns the response text.
func (c *BedrockClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"messages": []map[string]any{
			{
				"role":    "user",
				"content": []map[string]any{{"text": prompt}},
			},
		},
		"inferenceConfig": map[string]any{
			"maxTokens": c.maxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.completionModel),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	duration := time.Since(start)
	if err != nil {
		slog.Error("Bedrock invoke failed", "model", c.completionModel, "duration", duration, "error", err)
		return "", fmt.Errorf("bedrock invoke error: %w", err)
	}
	slog.Debug("Bedrock invoke completed", "model", c.completionModel, "duration", duration)

	return ExtractResponseText(out.Body), nil
}

// ExtractResponseText pulls the completion text out of a Bedrock response
// envelope. When the envelope is a JSON object the text lives at
// output.message.content[0].text; anything else is coerced to a string.
func ExtractResponseText(body []byte) string {
	var envelope struct {
		Output struct {
			Message struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"message"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Output.Message.Content) > 0 {
			return strings.TrimSpace(envelope.Output.Message.Content[0].Text)
		}
	}
	return strings.TrimSpace(string(body))
}

// Embed converts text into a vector using the embedding model.
func (c *BedrockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(map[string]any{"inputText": text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.embeddingModel),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock embed error: %w", err)
	}

	var resp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}

	return resp.Embedding, nil
}
