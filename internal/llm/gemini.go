// Package llm wraps the Gemini SDK behind the two narrow calls the chat
// providers need: free-form text generation and query embedding.
package llm

import (
	"context"
	"errors"
	"strings"

	genai "google.golang.org/genai"
)

// ErrEmptyCompletion indicates the model returned no usable text.
var ErrEmptyCompletion = errors.New("llm: model returned empty completion")

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Embedder turns a query into a dense vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float64, error)
}

// GeminiOptions configures the Gemini wrapper.
type GeminiOptions struct {
	APIKey     string
	Model      string
	EmbedModel string
}

// GeminiClient is a thin wrapper around the official genai client.
type GeminiClient struct {
	cli        *genai.Client
	model      string
	embedModel string
}

// NewGeminiClient dials the Gemini API.
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	embedModel := strings.TrimSpace(opts.EmbedModel)
	if embedModel == "" {
		embedModel = "text-embedding-004"
	}
	return &GeminiClient{cli: cli, model: model, embedModel: embedModel}, nil
}

// Model returns the configured generation model identifier.
func (g *GeminiClient) Model() string { return g.model }

// GenerateText sends the prompt and returns the first candidate's text.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// EmbedText embeds the text with the configured embedding model.
func (g *GeminiClient) EmbedText(ctx context.Context, text string) ([]float64, error) {
	resp, err := g.cli.Models.EmbedContent(ctx, g.embedModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("llm: model returned empty embedding")
	}
	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return vec, nil
}
