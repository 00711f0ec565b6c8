package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"booking-payments/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	paypalLiveBaseURL    = "https://api-m.paypal.com"
	paypalSandboxBaseURL = "https://api-m.sandbox.paypal.com"

	paypalStatusCompleted = "COMPLETED"
	paypalMaxBody         = 1 << 20
)

// PayPalProvider talks to the PayPal Orders v2 API. A fresh client-credentials
// token is fetched for every operation; nothing is cached between calls.
type PayPalProvider struct {
	cfg     PayPalConfig
	baseURL string
	client  *http.Client
}

type PayPalOption func(*PayPalProvider)

// WithPayPalBaseURL overrides the mode-selected API host.
func WithPayPalBaseURL(baseURL string) PayPalOption {
	return func(p *PayPalProvider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithPayPalHTTPClient(client *http.Client) PayPalOption {
	return func(p *PayPalProvider) {
		if client != nil {
			p.client = client
		}
	}
}

func NewPayPalProvider(cfg PayPalConfig, opts ...PayPalOption) *PayPalProvider {
	p := &PayPalProvider{
		cfg:     cfg,
		baseURL: paypalSandboxBaseURL,
		client:  NewHTTPClient(30 * time.Second),
	}
	if cfg.Mode == ModeLive {
		p.baseURL = paypalLiveBaseURL
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewHTTPClient returns a client whose outbound requests are traced.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func (p *PayPalProvider) Name() string { return "PayPal" }

func (p *PayPalProvider) RequiresManualReview() bool { return false }

func (p *PayPalProvider) BaseURL() string { return p.baseURL }

type paypalToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	ReferenceID string        `json:"reference_id,omitempty"`
	Amount      *paypalAmount `json:"amount,omitempty"`
}

type paypalOrderRequest struct {
	Intent        string               `json:"intent"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalOrder struct {
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	PurchaseUnits []paypalPurchaseUnit `json:"purchase_units"`
}

type paypalError struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Details          []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

// apiError is a non-2xx answer from PayPal.
type apiError struct {
	StatusCode int
	Message    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.StatusCode)
}

func (p *PayPalProvider) CreatePaymentIntent(ctx context.Context, req IntentRequest) Result {
	if req.BookingID == "" {
		return failed("booking reference is required")
	}
	if !req.Amount.IsPositive() {
		return failed("amount must be greater than zero")
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return failed("PayPal authentication failed: " + err.Error())
	}

	body := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			ReferenceID: req.BookingID,
			Amount: &paypalAmount{
				CurrencyCode: currency,
				Value:        req.Amount.StringFixed(2),
			},
		}},
	}
	var order paypalOrder
	if err := p.call(ctx, http.MethodPost, "/v2/checkout/orders", token, body, &order); err != nil {
		return failed("PayPal order creation failed: " + err.Error())
	}
	if order.ID == "" {
		return failed("PayPal order creation failed: response did not include an order id")
	}

	return Result{
		Success:         true,
		PaymentIntentID: order.ID,
		ClientSecret:    order.ID,
		Status:          domain.IntentRequiresAction,
	}
}

func (p *PayPalProvider) ConfirmPayment(ctx context.Context, req ConfirmRequest) Result {
	if req.PaymentIntentID == "" {
		return failed("payment intent id is required")
	}

	token, err := p.accessToken(ctx)
	if err != nil {
		return failed("PayPal authentication failed: " + err.Error())
	}

	var order paypalOrder
	path := "/v2/checkout/orders/" + url.PathEscape(req.PaymentIntentID) + "/capture"
	if err := p.call(ctx, http.MethodPost, path, token, nil, &order); err != nil {
		return failed("PayPal capture failed: " + err.Error())
	}
	if order.Status != paypalStatusCompleted {
		return failed(fmt.Sprintf("PayPal capture did not complete (status %s)", order.Status))
	}

	return Result{
		Success:         true,
		PaymentIntentID: req.PaymentIntentID,
		Status:          domain.IntentSucceeded,
	}
}

func (p *PayPalProvider) GetPaymentStatus(ctx context.Context, paymentIntentID string) (*domain.PaymentIntent, error) {
	token, err := p.accessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("paypal token: %w", err)
	}

	var order paypalOrder
	if err := p.call(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(paymentIntentID), token, nil, &order); err != nil {
		return nil, fmt.Errorf("get paypal order %s: %w", paymentIntentID, err)
	}

	intent := &domain.PaymentIntent{
		ID:     order.ID,
		Amount: decimal.Zero,
		Status: domain.IntentPending,
	}
	if order.Status == paypalStatusCompleted {
		intent.Status = domain.IntentSucceeded
	}
	if len(order.PurchaseUnits) > 0 {
		unit := order.PurchaseUnits[0]
		intent.BookingID = unit.ReferenceID
		if unit.Amount != nil {
			intent.Currency = unit.Amount.CurrencyCode
			if amount, err := decimal.NewFromString(unit.Amount.Value); err == nil {
				intent.Amount = amount
			}
		}
	}
	return intent, nil
}

func (p *PayPalProvider) accessToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var tok paypalToken
	if err := p.do(req, &tok); err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response did not include an access token")
	}
	return tok.AccessToken, nil
}

func (p *PayPalProvider) call(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return p.do(req, out)
}

func (p *PayPalProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, paypalMaxBody))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &apiError{StatusCode: resp.StatusCode, Message: paypalErrorMessage(data, resp.Status)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func paypalErrorMessage(body []byte, fallback string) string {
	var perr paypalError
	if err := json.Unmarshal(body, &perr); err != nil {
		return fallback
	}
	switch {
	case perr.Message != "" && len(perr.Details) > 0 && perr.Details[0].Description != "":
		return perr.Message + ": " + perr.Details[0].Description
	case perr.Message != "":
		return perr.Message
	case perr.ErrorDescription != "":
		return perr.ErrorDescription
	case perr.ErrorCode != "":
		return perr.ErrorCode
	}
	return fallback
}
