package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storeadmin/internal/config"
	"storeadmin/internal/monitor"
	"storeadmin/pkg/breaker"
	"storeadmin/pkg/log"
	"storeadmin/pkg/utils"
)

// TokenProvider supplies the current marketplace API token. The token
// lives in the settings row and can change at runtime, so the client
// asks for it per request instead of caching it.
type TokenProvider func() string

// Client talks to the marketplace REST API. Every call goes through the
// circuit breaker; HTTP status codes are mapped to the typed errors the
// services branch on (401 expired auth, 409 configuration, 5xx transient).
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenProvider
	cb      *breaker.CircuitBreaker

	bootstrapRetries int
	bootstrapDelay   time.Duration
}

// NewClient creates a marketplace client from configuration.
func NewClient(cfg *config.UpstreamConfig, token TokenProvider) *Client {
	c := &Client{
		baseURL:          cfg.BaseURL,
		http:             &http.Client{Timeout: cfg.Timeout},
		token:            token,
		bootstrapRetries: cfg.BootstrapRetries,
		bootstrapDelay:   cfg.BootstrapDelay,
	}
	if cfg.BreakerEnabled {
		threshold := cfg.BreakerThreshold
		c.cb = breaker.NewCircuitBreaker("upstream", breaker.Config{
			Timeout: cfg.BreakerTimeout,
			ReadyToTrip: func(counts breaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			OnStateChange: func(name string, from, to breaker.State) {
				log.WithFields(map[string]interface{}{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("Upstream circuit state changed")
			},
		})
	}
	return c
}

// errorEnvelope is the marketplace error body.
type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mapStatus converts an upstream HTTP failure into a typed error.
func mapStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized:
		return utils.ErrAuthExpired
	case status == http.StatusConflict:
		return utils.ErrConfigurationRequired
	case status == http.StatusBadGateway,
		status == http.StatusServiceUnavailable,
		status == http.StatusGatewayTimeout:
		return utils.ErrUpstreamUnavailable
	}

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Code == "configuration_required" {
		return utils.ErrConfigurationRequired
	}
	return utils.WrapError(fmt.Errorf("upstream returned %d", status), utils.CodeUpstreamUnavailable, "upstream request failed")
}

// do runs one request through the breaker and decodes the response into out.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	call := func() error {
		var reader io.Reader
		if body != nil {
			b, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			monitor.Metrics().RecordUpstreamRequest(method, 0, time.Since(start))
			return utils.WrapError(err, utils.CodeUpstreamUnavailable, "upstream unreachable")
		}
		defer resp.Body.Close()
		monitor.Metrics().RecordUpstreamRequest(method, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 300 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return mapStatus(resp.StatusCode, respBody)
		}

		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}

	if c.cb == nil {
		return call()
	}
	err := c.cb.Execute(ctx, call)
	if err == breaker.ErrOpenState || err == breaker.ErrTooManyRequests {
		return utils.WrapError(err, utils.CodeUpstreamUnavailable, "upstream circuit open")
	}
	return err
}

// FetchOrders lists marketplace orders matching the filters.
func (c *Client) FetchOrders(ctx context.Context, filters OrderFilters) ([]Order, error) {
	query := url.Values{}
	if filters.Status != "" {
		query.Set("status", filters.Status)
	}
	if !filters.Since.IsZero() {
		query.Set("since", filters.Since.UTC().Format(time.RFC3339))
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}

	path := "/orders"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

// FetchOrder loads one marketplace order.
func (c *Client) FetchOrder(ctx context.Context, externalID string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(externalID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TransitionOrder asks the marketplace to apply a lifecycle action.
func (c *Client) TransitionOrder(ctx context.Context, externalID, action string, payload *TransitionPayload) (*Order, error) {
	body := map[string]interface{}{"action": action}
	if payload != nil {
		if len(payload.Keys) > 0 {
			body["keys"] = payload.Keys
		}
		if payload.Reason != "" {
			body["reason"] = payload.Reason
		}
	}

	var out Order
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(externalID)+"/transition", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchTemplates lists activation templates.
func (c *Client) FetchTemplates(ctx context.Context) ([]Template, error) {
	var out struct {
		Templates []Template `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// CreateClientFromOrder asks the marketplace to create a client record
// from an order's buyer. A conflict means the client already exists and
// is treated as success by the caller.
func (c *Client) CreateClientFromOrder(ctx context.Context, externalID string, email string, name *string) (*ClientRecord, error) {
	body := map[string]interface{}{"email": email}
	if name != nil {
		body["name"] = *name
	}

	var out ClientRecord
	if err := c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(externalID)+"/client", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchChatMessages loads the chat thread of an order.
func (c *Client) FetchChatMessages(ctx context.Context, externalID string) ([]ChatMessage, error) {
	var out struct {
		Messages []ChatMessage `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(externalID)+"/chat", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// SendChatMessage posts a seller message into an order chat.
func (c *Client) SendChatMessage(ctx context.Context, externalID, text string) error {
	body := map[string]interface{}{"text": text}
	return c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(externalID)+"/chat", body, nil)
}

// MarkChatRead tells the marketplace the thread was read.
func (c *Client) MarkChatRead(ctx context.Context, externalID string) error {
	return c.do(ctx, http.MethodPost, "/orders/"+url.PathEscape(externalID)+"/chat/read", nil, nil)
}

// FetchSettings loads the marketplace account settings.
func (c *Client) FetchSettings(ctx context.Context) (*Settings, error) {
	var out Settings
	if err := c.do(ctx, http.MethodGet, "/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyAuth checks the token is still accepted.
func (c *Client) VerifyAuth(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/me", nil, nil)
}

// Bootstrap fetches settings at session start, retrying transient
// failures a fixed number of times with a fixed delay. Expired auth is
// never retried.
func (c *Client) Bootstrap(ctx context.Context) (*Settings, error) {
	var lastErr error
	for attempt := 0; attempt < c.bootstrapRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.bootstrapDelay):
			}
		}

		settings, err := c.FetchSettings(ctx)
		if err == nil {
			return settings, nil
		}
		if utils.HasCode(err, utils.CodeAuthExpired) {
			return nil, err
		}

		lastErr = err
		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Upstream bootstrap attempt failed")
	}
	return nil, lastErr
}
