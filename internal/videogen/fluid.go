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

// FluidOptions configures the client for the frame-interpolating renderer.
type FluidOptions struct {
	BaseURL      string
	Frames       int
	HTTPClient   *http.Client
	PollInterval time.Duration
}

// FluidClient talks to the frame-interpolating renderer. Its result endpoint
// multiplexes progress and payload on one URL: a JSON body means the job is
// still running or failed, a video/mp4 body is the finished render.
type FluidClient struct {
	baseURL    string
	frames     int
	httpClient *http.Client
	interval   time.Duration
}

// NewFluidClient constructs a client with sane defaults.
func NewFluidClient(opts FluidOptions) (*FluidClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("videogen: fluid base url is required")
	}
	frames := opts.Frames
	if frames <= 0 {
		frames = 16
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &FluidClient{baseURL: baseURL, frames: frames, httpClient: httpClient, interval: interval}, nil
}

// Label implements Backend.
func (c *FluidClient) Label() string { return domain.KindVideoFluid }

// PollInterval implements Backend.
func (c *FluidClient) PollInterval() time.Duration { return c.interval }

// Submit enqueues a render job for the story.
func (c *FluidClient) Submit(ctx context.Context, story string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"story":      story,
		"num_frames": c.frames,
	})
	if err != nil {
		return "", fmt.Errorf("videogen: encode enqueue: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enqueue_story", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("videogen: build enqueue request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("videogen: enqueue: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("videogen: enqueue status %d", resp.StatusCode)
	}

	var decoded struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("videogen: decode enqueue response: %w", err)
	}
	if decoded.JobID == "" {
		return "", errors.New("videogen: enqueue returned empty job id")
	}
	return decoded.JobID, nil
}

// Poll checks the multiplexed result endpoint once.
func (c *FluidClient) Poll(ctx context.Context, jobID string) (Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/result/"+jobID, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("videogen: build result request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Outcome{}, fmt.Errorf("videogen: poll result: %w", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "application/json"):
		var decoded struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return Outcome{}, fmt.Errorf("videogen: decode result status: %w", err)
		}
		switch decoded.Status {
		case "processing":
			return Pending(), nil
		case "error":
			reason := decoded.Error
			if reason == "" {
				reason = "renderer reported an error"
			}
			return Failed(reason), nil
		default:
			return Outcome{}, fmt.Errorf("videogen: unknown result status %q", decoded.Status)
		}
	case strings.HasPrefix(contentType, "video/mp4"):
		video, err := io.ReadAll(resp.Body)
		if err != nil {
			return Outcome{}, fmt.Errorf("videogen: read video: %w", err)
		}
		if len(video) == 0 {
			return Outcome{}, errors.New("videogen: result returned empty video")
		}
		return Done(video), nil
	default:
		return Outcome{}, fmt.Errorf("videogen: unexpected result content type %q", contentType)
	}
}
