// Package paypaltest provides an in-process stand-in for the PayPal Orders API.
package paypaltest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

const (
	ClientID     = "client-id"
	ClientSecret = "client-secret"
	OrderID      = "5O190127TN364715T"
	accessToken  = "A21AA"
)

// Server answers token, create, capture and get-order calls.
type Server struct {
	*httptest.Server

	CreateCalls  atomic.Int32
	CaptureCalls atomic.Int32

	mu            sync.Mutex
	captureStatus string
	orderStatus   string
	references    map[string]string
}

// NewServer starts a server that completes every capture. It is closed when
// the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		captureStatus: "COMPLETED",
		orderStatus:   "APPROVED",
		references:    make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", s.token)
	mux.HandleFunc("POST /v2/checkout/orders", s.authorized(s.createOrder))
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", s.authorized(s.capture))
	mux.HandleFunc("GET /v2/checkout/orders/{id}", s.authorized(s.getOrder))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) SetCaptureStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captureStatus = status
}

// SetOrderStatus controls what GET /v2/checkout/orders/{id} reports.
func (s *Server) SetOrderStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderStatus = status
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != ClientID || pass != ClientSecret || r.FormValue("grant_type") != "client_credentials" {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client","error_description":"Client Authentication failed"}`))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": accessToken, "token_type": "Bearer", "expires_in": 32400})
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accessToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"name": "AUTHENTICATION_FAILURE", "message": "Authentication failed due to invalid authentication credentials"})
			return
		}
		next(w, r)
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	s.CreateCalls.Add(1)
	var body struct {
		PurchaseUnits []struct {
			ReferenceID string `json:"reference_id"`
		} `json:"purchase_units"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	if len(body.PurchaseUnits) > 0 {
		s.mu.Lock()
		s.references[OrderID] = body.PurchaseUnits[0].ReferenceID
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": OrderID, "status": "CREATED"})
}

func (s *Server) capture(w http.ResponseWriter, r *http.Request) {
	s.CaptureCalls.Add(1)
	s.mu.Lock()
	status := s.captureStatus
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"id": r.PathValue("id"), "status": status})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.orderStatus
	ref := s.references[r.PathValue("id")]
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     r.PathValue("id"),
		"status": status,
		"purchase_units": []map[string]any{{
			"reference_id": ref,
			"amount":       map[string]string{"currency_code": "EUR", "value": "250.00"},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
