// Package client talks to a running anuvad server.
package client

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

	"github.com/abhisek/anuvad/internal/learner"
	"github.com/abhisek/anuvad/internal/tutor"
)

// APIError is a structured failure returned by the server.
type APIError struct {
	Status    int
	Kind      string
	Message   string
	Field     string
	Raw       string
	Retryable bool
}

func (e *APIError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
}

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind tutor.Kind) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Kind == string(kind)
}

// Health is the liveness payload.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithTimeout bounds each request. Grading can take several seconds, so
// keep this above the server's own request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 45 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Health checks that the server is alive and reports its version.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, "/healthz", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Generate asks for a new sentence at level.
func (c *Client) Generate(ctx context.Context, learnerID string, level int) (*tutor.GenerateResult, error) {
	var res tutor.GenerateResult
	body := map[string]any{"learnerId": learnerID, "level": level}
	if err := c.do(ctx, "/generate-sentence", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Evaluate submits a translation for a tracking code.
func (c *Client) Evaluate(ctx context.Context, trackingCode, attempt string) (*tutor.EvaluateResult, error) {
	var res tutor.EvaluateResult
	body := map[string]any{"trackingCode": trackingCode, "attemptText": attempt}
	if err := c.do(ctx, "/evaluate-translation", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Chat asks the tutor a free-form question.
func (c *Client) Chat(ctx context.Context, learnerID, question string) (*tutor.ChatResult, error) {
	var res tutor.ChatResult
	body := map[string]any{"learnerId": learnerID, "question": question}
	if err := c.do(ctx, "/free-chat", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Progress fetches the learner's report.
func (c *Client) Progress(ctx context.Context, learnerID string) (*learner.Report, error) {
	var res learner.Report
	if err := c.do(ctx, "/progress-report", map[string]any{"learnerId": learnerID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Check grades a stand-alone pair.
func (c *Client) Check(ctx context.Context, bengali, english string) (*tutor.CheckResult, error) {
	var res tutor.CheckResult
	if err := c.do(ctx, "/translate", map[string]any{"ban": bengali, "eng": english}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do POSTs body as JSON (or GETs when body is nil) and decodes the reply
// into out.
func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	method := http.MethodGet
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		method = http.MethodPost
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var payload struct {
		Error struct {
			Kind      string `json:"kind"`
			Message   string `json:"message"`
			Field     string `json:"field"`
			Raw       string `json:"raw"`
			Retryable bool   `json:"retryable"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error.Kind == "" {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Message: msg, Retryable: status >= http.StatusInternalServerError}
	}
	e := payload.Error
	return &APIError{
		Status:    status,
		Kind:      e.Kind,
		Message:   e.Message,
		Field:     e.Field,
		Raw:       e.Raw,
		Retryable: e.Retryable,
	}
}
