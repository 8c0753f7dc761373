package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/runtime-insight/agent/internal/config"
	"github.com/runtime-insight/agent/pkg/models"
)

// ErrUnauthorized is returned when authentication fails (401)
var ErrUnauthorized = errors.New("authentication failed: invalid or expired token")

// HTTPSender posts each sample to a collector endpoint
type HTTPSender struct {
	serverURL string
	token     string
	client    *http.Client
	onCommand func(models.ControlRequest)
}

// NewHTTPSender creates a new HTTP sender. Commands piggybacked on server
// responses are passed to onCommand, which may be nil.
func NewHTTPSender(serverURL, token string, onCommand func(models.ControlRequest)) *HTTPSender {
	// Create HTTP client with connection pooling
	client := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &HTTPSender{
		serverURL: serverURL,
		token:     token,
		client:    client,
		onCommand: onCommand,
	}
}

// Send posts a single sample as gzip-compressed JSON
func (h *HTTPSender) Send(ctx context.Context, sample *models.MetricSample) error {
	if sample == nil {
		return nil
	}

	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample: %w", err)
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := gzipWriter.Write(data); err != nil {
		return fmt.Errorf("failed to compress data: %w", err)
	}
	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to close gzip writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.serverURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("User-Agent", fmt.Sprintf("runtime-insight/%s", config.Version))
	req.Header.Set("X-Agent-Version", config.Version)

	if h.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", h.token))
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		h.dispatch(respBody)
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadRequest:
		return fmt.Errorf("bad request: %s", string(respBody))
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited")
	default:
		return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
	}
}

// dispatch hands server commands to the callback; an unparsable body carries none
func (h *HTTPSender) dispatch(body []byte) {
	if h.onCommand == nil || len(body) == 0 {
		return
	}

	var serverResp models.ServerResponse
	if err := json.Unmarshal(body, &serverResp); err != nil {
		return
	}
	for _, cmd := range serverResp.Commands {
		h.onCommand(cmd)
	}
}

// Close closes idle connections
func (h *HTTPSender) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
