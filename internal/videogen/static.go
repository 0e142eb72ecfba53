package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ashserver/internal/domain"
)

// StaticOptions configures the client for the static-frame renderer.
type StaticOptions struct {
	BaseURL      string
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// StaticClient talks to the static-frame renderer. The service exposes a
// three-endpoint protocol: submit the story, poll a status word, then fetch
// the finished file from a separate download endpoint.
type StaticClient struct {
	baseURL    string
	httpClient *http.Client
	interval   time.Duration
}

// NewStaticClient constructs a client with sane defaults.
func NewStaticClient(opts StaticOptions) (*StaticClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("videogen: static base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &StaticClient{baseURL: baseURL, httpClient: httpClient, interval: interval}, nil
}

// Label implements Backend.
func (c *StaticClient) Label() string { return domain.KindVideoStatic }

// PollInterval implements Backend.
func (c *StaticClient) PollInterval() time.Duration { return c.interval }

// Submit enqueues a render job for the story.
func (c *StaticClient) Submit(ctx context.Context, story string) (string, error) {
	body, err := json.Marshal(map[string]string{"story": story})
	if err != nil {
		return "", fmt.Errorf("videogen: encode submit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/make_video", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("videogen: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("videogen: submit: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("videogen: submit status %d", resp.StatusCode)
	}

	var decoded struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("videogen: decode submit response: %w", err)
	}
	if decoded.JobID == "" {
		return "", errors.New("videogen: submit returned empty job id")
	}
	return decoded.JobID, nil
}

// Poll checks the job status and, once the renderer reports done, downloads
// the finished video.
func (c *StaticClient) Poll(ctx context.Context, jobID string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job_status/"+jobID, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("videogen: build status request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("videogen: poll status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return Outcome{}, fmt.Errorf("videogen: status endpoint returned %d", resp.StatusCode)
	}

	var decoded struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Outcome{}, fmt.Errorf("videogen: decode status: %w", err)
	}

	switch decoded.Status {
	case "pending":
		return Pending(), nil
	case "error":
		return Failed("renderer reported an error"), nil
	case "done":
		video, err := c.download(ctx, jobID)
		if err != nil {
			return Outcome{}, err
		}
		return Done(video), nil
	default:
		return Outcome{}, fmt.Errorf("videogen: unknown job status %q", decoded.Status)
	}
}

func (c *StaticClient) download(ctx context.Context, jobID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/get_video/"+jobID, nil)
	if err != nil {
		return nil, fmt.Errorf("videogen: build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("videogen: download video: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("videogen: download status %d", resp.StatusCode)
	}
	video, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("videogen: read video: %w", err)
	}
	if len(video) == 0 {
		return nil, errors.New("videogen: download returned empty body")
	}
	return video, nil
}
