// Package verification checks email deliverability through an external
// verification service.
package verification

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
)

const (
	defaultTimeout = 300 * time.Second
	maxErrorBody   = 2048
	maxResponse    = 1 << 20
)

// ErrEmptyResponse is returned when the service answers with no verdicts.
var ErrEmptyResponse = errors.New("verification service returned no verdicts")

// Verdict is one per-address result. Only Status is interpreted.
type Verdict struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// Response holds the decoded verdicts and the raw body for auditing.
type Response struct {
	Verdicts []Verdict
	Raw      json.RawMessage
}

type checkRequest struct {
	Emails                 []string `json:"emails"`
	CheckDeliverability    bool     `json:"checkDeliverability"`
	AllowInternationalized bool     `json:"allowInternationalized"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("verification service status %d: %s", e.StatusCode, e.Body)
}

// Client calls the verification endpoint. The service runs checks on its own
// infrastructure and only answers when done, so the timeout is long.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewClient(url, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:    strings.TrimSpace(url),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// Check posts emails and decodes the verdict array.
func (c *Client) Check(ctx context.Context, emails []string) (Response, error) {
	if c == nil || c.url == "" {
		return Response{}, errors.New("verification service not configured")
	}

	body, err := json.Marshal(checkRequest{
		Emails:                 emails,
		CheckDeliverability:    true,
		AllowInternationalized: false,
	})
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Response{}, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return Response{}, fmt.Errorf("read verification response: %w", err)
	}

	var verdicts []Verdict
	if err := json.Unmarshal(raw, &verdicts); err != nil {
		return Response{}, fmt.Errorf("decode verification response: %w", err)
	}
	if len(verdicts) == 0 {
		return Response{}, ErrEmptyResponse
	}

	return Response{Verdicts: verdicts, Raw: json.RawMessage(bytes.TrimSpace(raw))}, nil
}
