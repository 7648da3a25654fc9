package expiry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// PushSender delivers an expiry notification to a user. Delivery is
// fire-and-forget from the ledger's perspective: a failed send never rolls
// anything back.
type PushSender interface {
	Send(ctx context.Context, userID uuid.UUID, title, body string) error
}

var _ PushSender = (*HTTPPushSender)(nil)

// HTTPPushSender posts notifications to the platform's internal push relay.
type HTTPPushSender struct {
	endpoint string
	client   *http.Client
}

func NewHTTPPushSender(endpoint string) *HTTPPushSender {
	return &HTTPPushSender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type pushPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
}

func (s *HTTPPushSender) Send(ctx context.Context, userID uuid.UUID, title, body string) error {
	payload, err := json.Marshal(pushPayload{UserID: userID, Title: title, Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("push relay unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push relay rejected notification: status %d", resp.StatusCode)
	}
	return nil
}
