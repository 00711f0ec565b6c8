package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"booking-payments/internal/auth"
	"booking-payments/internal/domain"
	"booking-payments/internal/infrastructure/email"
	"booking-payments/internal/infrastructure/payment"
	"booking-payments/internal/infrastructure/payment/paypaltest"
	"booking-payments/internal/metrics"
	"booking-payments/internal/repo"
	"booking-payments/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type stubHealth struct{ status string }

func (s stubHealth) Health(ctx context.Context) map[string]string {
	return map[string]string{"status": s.status}
}

type stubEmail struct {
	to, provider string
	err          error
}

func (s *stubEmail) SendTest(ctx context.Context, to, providerName string) (email.SendResult, error) {
	s.to, s.provider = to, providerName
	if s.err != nil {
		return email.SendResult{}, s.err
	}
	return email.SendResult{Success: true, MessageID: "msg-1"}, nil
}

type testServer struct {
	router   *gin.Engine
	bookings *repo.InMemoryBookingRepo
	settings *repo.InMemorySettingsRepo
	verifier *auth.Verifier
	email    *stubEmail
	guest    auth.Caller
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	payments := repo.NewInMemoryPaymentRepo()
	bookings := repo.NewInMemoryBookingRepo(payments)
	settings := repo.NewInMemorySettingsRepo()
	pp := paypaltest.NewServer(t)

	m := metrics.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, m.Register(reg))

	registry := payment.NewRegistry(
		payment.WithPayPalOptions(payment.WithPayPalBaseURL(pp.URL)),
		payment.WithObserver(m),
	)
	svc := service.NewPaymentService(bookings, payments, payment.NewLoader(settings), registry)
	verifier := auth.NewVerifier(jwtSecret)
	mail := &stubEmail{}

	return &testServer{
		router: NewRouter(Deps{
			Payments: svc,
			Email:    mail,
			Verifier: verifier,
			DB:       stubHealth{status: "up"},
			Observer: m,
			Gatherer: reg,
		}),
		bookings: bookings,
		settings: settings,
		verifier: verifier,
		email:    mail,
		guest:    auth.Caller{UserID: uuid.New(), Role: "authenticated"},
	}
}

func (s *testServer) token(t *testing.T, caller auth.Caller) string {
	t.Helper()
	tok, err := s.verifier.Issue(caller, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) enableWise(t *testing.T) {
	t.Helper()
	require.NoError(t, s.settings.Upsert(context.Background(), payment.KeyWiseEnabled, true))
	require.NoError(t, s.settings.Upsert(context.Background(), payment.KeyWiseAccountID, "wise-acct-001"))
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (s *testServer) seedBooking() domain.Booking {
	b := domain.Booking{
		ID:         uuid.New(),
		GuestID:    s.guest.UserID,
		TotalPrice: decimal.RequireFromString("250.00"),
		Currency:   "EUR",
		Status:     domain.BookingPending,
	}
	s.bookings.Save(b)
	return b
}

func TestCreatePaymentIntent_Unauthenticated(t *testing.T) {
	s := newTestServer(t)
	b := s.seedBooking()

	w, body := s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", "", map[string]any{"booking_id": b.ID, "amount": 250})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", body["error"])

	w, _ = s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", "garbage", map[string]any{"booking_id": b.ID, "amount": 250})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPaymentEndpoints_AuthCheckedBeforeBody(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", "", `{"booking_id": 1, "amount": "abc"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", body["error"])

	w, body = s.do(t, http.MethodPost, "/functions/v1/confirm-payment", "", "not json")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", body["error"])

	w, body = s.do(t, http.MethodPost, "/functions/v1/confirm-payment", s.token(t, s.guest), "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", body["error"])
}

func TestCreatePaymentIntent_ManualTransfer(t *testing.T) {
	s := newTestServer(t)
	s.enableWise(t)
	b := s.seedBooking()

	w, body := s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", s.token(t, s.guest), map[string]any{
		"booking_id": b.ID,
		"amount":     "250.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["requires_manual_review"])
	assert.Equal(t, "Wise", body["provider"])
	assert.NotContains(t, body, "client_secret")

	instructions, ok := body["instructions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "250.00", instructions["amount"])
	assert.Equal(t, b.ID.String(), instructions["reference"])
}

func TestCreatePaymentIntent_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	b := s.seedBooking()
	token := s.token(t, s.guest)

	w, body := s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", token, `{"booking_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", body["error"])

	w, body = s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", token, map[string]any{"booking_id": b.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields: booking_id, amount", body["error"])

	w, body = s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", token, map[string]any{"booking_id": uuid.New(), "amount": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Booking not found", body["error"])

	w, body = s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", token, map[string]any{"booking_id": b.ID, "amount": 10})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No payment provider is configured and enabled", body["error"])

	stranger := s.token(t, auth.Caller{UserID: uuid.New()})
	w, body = s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", stranger, map[string]any{"booking_id": b.ID, "amount": 10})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized to access this booking", body["error"])
}

func TestConfirmPayment(t *testing.T) {
	s := newTestServer(t)
	s.enableWise(t)
	b := s.seedBooking()
	token := s.token(t, s.guest)

	_, created := s.do(t, http.MethodPost, "/functions/v1/create-payment-intent", token, map[string]any{"booking_id": b.ID, "amount": 250})
	intentID, _ := created["payment_intent_id"].(string)
	require.NotEmpty(t, intentID)

	w, body := s.do(t, http.MethodPost, "/functions/v1/confirm-payment", token, map[string]any{"booking_id": b.ID, "payment_intent_id": "wise_0_deadbeef"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Payment intent does not match booking", body["error"])

	w, body = s.do(t, http.MethodPost, "/functions/v1/confirm-payment", token, map[string]any{"booking_id": b.ID, "payment_intent_id": intentID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["requires_manual_review"])
	assert.NotContains(t, body, "booking_status")
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	s.enableWise(t)
	admin := s.token(t, auth.Caller{UserID: uuid.New(), Role: auth.RoleAdmin})

	w, _ := s.do(t, http.MethodGet, "/admin/payments/providers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/payments/providers", s.token(t, s.guest), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := s.do(t, http.MethodGet, "/admin/payments/providers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Wise", body["active_provider"])
	assert.Len(t, body["providers"], 3)

	w, body = s.do(t, http.MethodPost, "/admin/payments/test", admin, map[string]any{"provider": "wise"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])

	w, body = s.do(t, http.MethodPost, "/admin/payments/test", admin, map[string]any{"provider": "paypal"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PayPal is not configured or not enabled", body["error"])
}

func TestAdminEmailTest(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, auth.Caller{UserID: uuid.New(), Role: auth.RoleService})

	w, _ := s.do(t, http.MethodPost, "/admin/email/test", admin, map[string]any{"to": "not-an-address"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := s.do(t, http.MethodPost, "/admin/email/test", admin, map[string]any{"to": "ops@example.com", "provider": "resend"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "msg-1", body["message_id"])
	assert.Equal(t, "ops@example.com", s.email.to)
	assert.Equal(t, "resend", s.email.provider)

	tests := []struct {
		err  error
		want string
	}{
		{email.ErrNoProviderConfigured, "No email provider is configured and enabled"},
		{fmt.Errorf("%w: resend", email.ErrProviderNotEnabled), "Email provider is not configured or not enabled"},
		{fmt.Errorf("%w: \"pigeon\"", email.ErrUnknownProvider), "Unknown email provider"},
		{errors.New("dial tcp 10.0.0.5:587: i/o timeout"), "Failed to send test email"},
	}
	for _, tt := range tests {
		s.email.err = tt.err
		w, body = s.do(t, http.MethodPost, "/admin/email/test", admin, map[string]any{"to": "ops@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, tt.want, body["error"])
	}
}

func TestRequestIDAndOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))

	w, _ = s.do(t, http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w, body := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", body["error"])
}

func TestHealth_Down(t *testing.T) {
	router := NewRouter(Deps{DB: stubHealth{status: "down"}, Verifier: auth.NewVerifier(jwtSecret)})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWriteError_HidesUnexpectedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	writeError(c, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}

type outageBookings struct{ repo.BookingRepo }

func (outageBookings) FindById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return nil, errors.New("connection refused")
}

func TestCreatePaymentIntent_StorageOutageIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	s.enableWise(t)
	payments := repo.NewInMemoryPaymentRepo()
	svc := service.NewPaymentService(outageBookings{s.bookings}, payments, payment.NewLoader(s.settings), payment.NewRegistry())
	router := NewRouter(Deps{Payments: svc, Verifier: s.verifier, DB: stubHealth{status: "up"}})

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(map[string]any{"booking_id": uuid.New(), "amount": 10}))
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/create-payment-intent", &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token(t, s.guest))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Failed to load booking"}`, w.Body.String())
}
