// Package story calls the multi-step story composition service.
package story

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Options configures the story service client.
type Options struct {
	BaseURL    string
	MaxSteps   int
	HTTPClient *http.Client
}

// Client drives the iterative story writer. The service expands a concept
// into a full story over several internal refinement steps and returns the
// final text in one response.
type Client struct {
	baseURL    string
	maxSteps   int
	httpClient *http.Client
}

// NewClient constructs a client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("story: base url is required")
	}
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 9
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{baseURL: baseURL, maxSteps: maxSteps, httpClient: httpClient}, nil
}

// Generate expands the concept into a full story.
func (c *Client) Generate(ctx context.Context, concept string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"concept":       concept,
		"initial_story": "",
		"max_steps":     c.maxSteps,
	})
	if err != nil {
		return "", fmt.Errorf("story: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_story/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("story: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("story: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("story: status %d", resp.StatusCode)
	}

	var decoded struct {
		Story string `json:"story"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("story: decode response: %w", err)
	}
	if decoded.Story == "" {
		return "", errors.New("story: service returned empty story")
	}
	return decoded.Story, nil
}
