package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"shopbot/internal/domain"
)

// Sender delivers a message to a user who is not the author of the current
// event (operators on new orders, buyers on status changes).
type Sender interface {
	Send(ctx context.Context, msg Outbound) error
}

// LogSender writes messages to the log; used when no gateway is configured.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Outbound) error {
	s.log.InfoContext(ctx, "outbound message",
		"recipient_id", msg.RecipientID,
		"text", msg.Text,
		"actions", len(msg.Actions),
	)
	return nil
}

// HTTPSender posts each message as JSON to the gateway URL.
type HTTPSender struct {
	url    string
	client *http.Client
}

func NewHTTPSender(url string, timeout time.Duration) *HTTPSender {
	return &HTTPSender{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSender) Send(ctx context.Context, msg Outbound) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbound: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: gateway returned %d", domain.ErrUnavailable, resp.StatusCode)
	}
	return nil
}
