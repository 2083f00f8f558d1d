// Package learning delivers outcome events to the downstream learning system.
package learning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

const maxErrorBody = 512

// HTTPSink posts events as JSON to a learning API endpoint.
type HTTPSink struct {
	client *http.Client
	url    string
	token  string
}

// NewHTTPSink creates an HTTP sink. token is sent as a bearer credential when set.
// Timeouts come from the per-attempt context, so client may be http.DefaultClient.
func NewHTTPSink(client *http.Client, url, token string) *HTTPSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSink{client: client, url: url, token: token}
}

// Deliver sends one event. 429 and 5xx responses and network errors are retryable;
// any other non-2xx status is a permanent rejection.
func (s *HTTPSink) Deliver(ctx context.Context, e outcome.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w: %w", domain.ErrFeedbackRejected, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w: %w", domain.ErrFeedbackRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", e.IdempotencyKey())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("learning api status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return fmt.Errorf("learning api status %d: %s: %w",
		resp.StatusCode, bytes.TrimSpace(detail), domain.ErrFeedbackRejected)
}
