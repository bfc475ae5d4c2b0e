package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/marketgen/api/internal/config"
)

// ImageEngine defines the interface for external image generation.
// SubmitAndAwait blocks until the engine reaches a terminal state, however
// long that takes.
type ImageEngine interface {
	SubmitAndAwait(ctx context.Context, prompt, name string) ([]string, error)
	IsConfigured() bool
}

// A2EClient implements ImageEngine for the A2E image generation API.
type A2EClient struct {
	httpClient *http.Client
	pollClient *http.Client
	baseURL    string
	apiKey     string
	interval   time.Duration
}

// startRequest is the submit payload.
type startRequest struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// apiEnvelope wraps every A2E response; code != 0 is an application-level failure.
type apiEnvelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type startData struct {
	ID string `json:"_id"`
}

type taskDetail struct {
	CurrentStatus string   `json:"current_status"`
	ImageURLs     []string `json:"image_urls"`
	FailedMessage string   `json:"failed_message"`
}

// Task terminal states.
const (
	taskStatusCompleted = "completed"
	taskStatusFailed    = "failed"
)

// NewA2EClient creates a new A2E API client. Submit requests get a bounded
// timeout; individual poll requests get a shorter one. The poll loop itself
// has no deadline.
func NewA2EClient(cfg *config.A2EConfig) *A2EClient {
	interval := time.Duration(cfg.PollInterval) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &A2EClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pollClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		interval:   interval,
	}
}

// SubmitAndAwait submits a generation task and polls until it completes or
// fails. Submit errors are terminal. Poll errors are swallowed and polling
// continues; engine latency is unbounded and that is accepted.
func (c *A2EClient) SubmitAndAwait(ctx context.Context, prompt, name string) ([]string, error) {
	taskID, err := c.submit(ctx, prompt, name)
	if err != nil {
		return nil, err
	}

	log.Printf("[A2E] Task submitted: %s (%s)", taskID, name)
	return c.await(ctx, taskID)
}

func (c *A2EClient) submit(ctx context.Context, prompt, name string) (string, error) {
	bodyBytes, err := json.Marshal(startRequest{Name: name, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/v1/userNanoBanana/start"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to submit task: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("a2e API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if envelope.Code != 0 {
		return "", fmt.Errorf("a2e API rejected task (code %d): %s", envelope.Code, string(respBody))
	}

	var data startData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return "", fmt.Errorf("failed to unmarshal task data: %w", err)
	}
	if data.ID == "" {
		return "", fmt.Errorf("a2e API returned no task id")
	}

	return data.ID, nil
}

// await polls the task until a terminal state. Transient query errors are
// logged and polling continues.
func (c *A2EClient) await(ctx context.Context, taskID string) ([]string, error) {
	started := time.Now()
	lastStatus := ""

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.interval):
		}

		detail, err := c.getDetail(ctx, taskID)
		if err != nil {
			// Network blips don't fail the task; keep polling.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		if detail.CurrentStatus != lastStatus {
			lastStatus = detail.CurrentStatus
			log.Printf("[A2E] Task %s status: %s (%.0fs)", taskID, detail.CurrentStatus, time.Since(started).Seconds())
		}

		switch detail.CurrentStatus {
		case taskStatusCompleted:
			log.Printf("[A2E] Task %s completed in %.0fs", taskID, time.Since(started).Seconds())
			return detail.ImageURLs, nil
		case taskStatusFailed:
			msg := detail.FailedMessage
			if msg == "" {
				msg = "unknown"
			}
			return nil, fmt.Errorf("image generation failed: %s", msg)
		}
	}
}

func (c *A2EClient) getDetail(ctx context.Context, taskID string) (*taskDetail, error) {
	url := fmt.Sprintf("%s/api/v1/userNanoBanana/detail/%s", c.baseURL, taskID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.pollClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status check failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	var detail taskDetail
	if err := json.Unmarshal(envelope.Data, &detail); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task detail: %w", err)
	}

	return &detail, nil
}

func (c *A2EClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

// IsConfigured returns true if the client has valid configuration.
func (c *A2EClient) IsConfigured() bool {
	return c.apiKey != "" && c.baseURL != ""
}
