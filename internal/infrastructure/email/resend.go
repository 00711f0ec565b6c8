package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const resendBaseURL = "https://api.resend.com"

// ResendProvider sends mail through the Resend HTTP API with an API key.
type ResendProvider struct {
	cfg     ResendConfig
	baseURL string
	client  *http.Client
}

type ResendOption func(*ResendProvider)

func WithResendBaseURL(baseURL string) ResendOption {
	return func(p *ResendProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func NewResendProvider(cfg ResendConfig, opts ...ResendOption) *ResendProvider {
	p := &ResendProvider{
		cfg:     cfg,
		baseURL: resendBaseURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *ResendProvider) Name() string { return "Resend" }

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (p *ResendProvider) Send(ctx context.Context, msg Message) SendResult {
	var out resendResponse
	err := p.call(ctx, http.MethodPost, "/emails", resendRequest{
		From:    p.cfg.From,
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}, &out)
	if err != nil {
		return SendResult{Error: fmt.Sprintf("resend delivery failed: %v", err)}
	}
	return SendResult{Success: true, MessageID: out.ID}
}

// TestConnection verifies the API key by listing sending domains.
func (p *ResendProvider) TestConnection(ctx context.Context) error {
	return p.call(ctx, http.MethodGet, "/domains", nil, nil)
}

func (p *ResendProvider) call(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rerr resendError
		if json.Unmarshal(data, &rerr) == nil && rerr.Message != "" {
			return fmt.Errorf("%s (HTTP %d)", rerr.Message, resp.StatusCode)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out != nil && len(data) > 0 {
		return json.Unmarshal(data, out)
	}
	return nil
}
