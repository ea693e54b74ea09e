package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/livescribe/internal/webhook"
)

const (
	requestTimeout    = 15 * time.Second
	defaultMaxRetries = 2
	defaultBackoff    = time.Second
	errorBodyLimit    = 512
)

// StatusError is returned when the receiver answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transcript webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the receiver may accept the same delivery later.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// TranscriptSender delivers the end-of-session summary as JSON, retrying
// transport errors and retryable statuses with exponential backoff.
type TranscriptSender struct {
	url        string
	client     *http.Client
	maxRetries int
	backoff    time.Duration
}

func NewTranscriptSender(url string) webhook.Sender {
	return newTranscriptSender(url, defaultMaxRetries, defaultBackoff)
}

func newTranscriptSender(url string, maxRetries int, backoff time.Duration) *TranscriptSender {
	return &TranscriptSender{
		url:        url,
		client:     &http.Client{Timeout: requestTimeout},
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (s *TranscriptSender) SendTranscript(ctx context.Context, payload webhook.TranscriptWebhookPayload) error {
	if s.url == "" {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transcript webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			// backoff, 2*backoff, 4*backoff, ...
			wait := s.backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("transcript webhook: %w (last error: %v)", ctx.Err(), lastErr)
			case <-time.After(wait):
			}
		}

		err := s.post(ctx, payload.SessionID, body)
		if err == nil {
			return nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return err
		}
		slog.Warn("transcript webhook delivery failed", "error", err, "attempt", attempt+1, "session_id", payload.SessionID)
	}
	return lastErr
}

func (s *TranscriptSender) post(ctx context.Context, sessionID string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create transcript webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Livescribe-Session", sessionID)
	req.Header.Set("X-Livescribe-Schema", webhook.TranscriptWebhookSchemaVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post transcript webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
}
