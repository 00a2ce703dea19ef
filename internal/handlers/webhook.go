package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solatis/alertkeeper/internal/core/auth"
	"github.com/solatis/alertkeeper/internal/types"
)

// ErrWebhookStatus is returned when the receiver answers with a non-2xx status.
var ErrWebhookStatus = errors.New("webhook returned non-2xx status")

// WebhookOptions configures a WebhookHandler.
// Requests are signed when Secret is non-empty.
type WebhookOptions struct {
	URL     string
	Timeout time.Duration
	KeyID   string
	Secret  []byte
	Client  *http.Client
}

// WebhookHandler POSTs each action as a JSON Event.
type WebhookHandler struct {
	url    string
	client *http.Client
	keyID  string
	secret []byte
	now    func() time.Time
}

func NewWebhookHandler(opts WebhookOptions) (*WebhookHandler, error) {
	if opts.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &WebhookHandler{
		url:    opts.URL,
		client: client,
		keyID:  opts.KeyID,
		secret: opts.Secret,
		now:    time.Now,
	}, nil
}

func (h *WebhookHandler) ID() string { return WebhookID }

func (h *WebhookHandler) Handle(ctx context.Context, action types.Action) error {
	now := h.now()
	body, err := json.Marshal(newEvent(ctx, action, now))
	if err != nil {
		return fmt.Errorf("serialize action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if len(h.secret) > 0 {
		auth.SignRequest(req, h.keyID, h.secret, body, now)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrWebhookStatus, resp.StatusCode)
	}
	return nil
}
