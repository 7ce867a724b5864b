package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrHTTPEndpointRequired is returned when the gateway endpoint is missing.
var ErrHTTPEndpointRequired = errors.New("sms: http endpoint is required")

// GatewayError is returned when the gateway answers with a non-2xx status.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("sms: gateway responded %d: %s", e.StatusCode, e.Body)
}

// HTTPConfig configures the form-post gateway driver.
type HTTPConfig struct {
	// Endpoint is the gateway URL messages are posted to.
	Endpoint string
	// APIKey is sent in the apikey header.
	APIKey string
	// UserID identifies the account at the gateway.
	UserID string
	// SenderID is the alphanumeric sender shown on the handset.
	SenderID string
	// Headers are extra headers added to every request.
	Headers map[string]string
	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
	// Client overrides the HTTP client, mostly for tests.
	Client *http.Client
}

// HTTP posts messages to a gateway as application/x-www-form-urlencoded.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
}

// NewHTTP builds the http driver.
func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, ErrHTTPEndpointRequired
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("sms: invalid endpoint: %w", err)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &HTTP{cfg: cfg, client: client}, nil
}

// Send posts the message and treats any non-2xx status as a failure.
func (h *HTTP) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	form := url.Values{}
	form.Set("userid", h.cfg.UserID)
	form.Set("senderid", h.cfg.SenderID)
	form.Set("msgType", "text")
	form.Set("duplicatecheck", "true")
	form.Set("sendMethod", "quick")
	form.Set("mobile", msg.To)
	form.Set("msg", msg.Body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("sms: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	if h.cfg.APIKey != "" {
		req.Header.Set("apikey", h.cfg.APIKey)
	}
	for k, v := range h.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("sms: read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &GatewayError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return nil
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
