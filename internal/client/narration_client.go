package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tutorcast/api/internal/compiler"
	"github.com/tutorcast/api/internal/config"
)

// NarrationClient talks to the text-to-speech microservice
type NarrationClient struct {
	httpClient *http.Client
	baseURL    string
}

var _ compiler.Synthesizer = (*NarrationClient)(nil)

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
	StepID   string `json:"step_id,omitempty"`
}

type synthesizeResponse struct {
	AudioURL   string `json:"audioUrl"`
	DurationMs int64  `json:"durationMs"`
}

// NewNarrationClient creates a new narration client
func NewNarrationClient(cfg *config.NarrationConfig) *NarrationClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &NarrationClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.ServiceURL,
	}
}

// Synthesize renders one step's narration text
func (c *NarrationClient) Synthesize(ctx context.Context, req compiler.SynthesisRequest) (*compiler.SynthesisResult, error) {
	var result synthesizeResponse
	body := synthesizeRequest{
		Text:     req.Text,
		Language: string(req.Language),
		Voice:    req.Voice,
		StepID:   req.StepID,
	}
	if err := c.post(ctx, "/synthesize", body, &result); err != nil {
		return nil, err
	}
	if result.AudioURL == "" {
		return nil, fmt.Errorf("narration service returned no audio url")
	}
	return &compiler.SynthesisResult{AudioURL: result.AudioURL, DurationMs: result.DurationMs}, nil
}

// HealthCheck checks if the narration service is available
func (c *NarrationClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("narration service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// post sends a POST request with JSON body and parses the response
func (c *NarrationClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("narration service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *NarrationClient) IsConfigured() bool {
	return c.baseURL != ""
}
