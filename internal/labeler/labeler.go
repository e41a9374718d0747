// Package labeler defines the span-labeling capability the pipeline depends
// on, plus an HTTP client for a GLiNER-style inference server.
//
// The pipeline never talks to a model directly: every extraction strategy
// (single-pass, multi-pass, parallel) goes through the Labeler interface, so
// tests and embedders can substitute their own detector.
package labeler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"entity-cloak/internal/entity"
	"entity-cloak/internal/logger"
)

// Labeler produces candidate spans for the given text. Implementations must
// return spans with 0 <= Start < End <= len(text) and must not retain state
// across calls; callers treat the Labeler as read-only and may invoke it
// concurrently.
type Labeler interface {
	Label(ctx context.Context, text string, labels []string, threshold float64) ([]entity.Span, error)
}

// Func adapts a plain function to the Labeler interface.
type Func func(ctx context.Context, text string, labels []string, threshold float64) ([]entity.Span, error)

// Label implements Labeler.
func (f Func) Label(ctx context.Context, text string, labels []string, threshold float64) ([]entity.Span, error) {
	return f(ctx, text, labels, threshold)
}

const maxResponseBytes = 10 << 20 // 10 MB

// HTTPClient calls a remote inference server over JSON/HTTP.
type HTTPClient struct {
	url    string
	model  string
	client *http.Client
	log    *logger.Logger
}

// NewHTTPClient builds a client for the inference server at endpoint.
// A blank endpoint is a configuration error: the pipeline cannot run
// without its model.
func NewHTTPClient(endpoint, model string, timeout time.Duration, log *logger.Logger) (*HTTPClient, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("labeler endpoint not configured")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPClient{
		url:    endpoint + "/predict",
		model:  model,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}, nil
}

type predictRequest struct {
	Model     string   `json:"model,omitempty"`
	Text      string   `json:"text"`
	Labels    []string `json:"labels"`
	Threshold float64  `json:"threshold"`
}

type predictResponse struct {
	Entities []entity.Span `json:"entities"`
}

// Label sends one prediction request and decodes the returned spans.
func (c *HTTPClient) Label(ctx context.Context, text string, labels []string, threshold float64) ([]entity.Span, error) {
	reqBody, err := json.Marshal(predictRequest{
		Model:     c.model,
		Text:      text,
		Labels:    labels,
		Threshold: threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req) // #nosec G704 -- URL from trusted config, not user input
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on HTTP response body

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxResponseBytes {
		c.log.Warnf("response_truncated", "inference response truncated at %d bytes", maxResponseBytes)
		body = body[:maxResponseBytes]
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference server: %s: %s", resp.Status, firstLine(body))
	}

	var out predictResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	return out.Entities, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
