package handler

import (
	"net/http"
	"slices"
	"time"

	"booking-payments/internal/auth"
	"booking-payments/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Payments       service.PaymentService
	Email          EmailTester
	Verifier       *auth.Verifier
	DB             HealthChecker
	Observer       RequestObserver
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(d.Observer), corsMiddleware(d.AllowedOrigins))

	if d.DB != nil {
		r.GET("/health", healthHandler(d.DB))
	}
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	payments := NewPaymentHandler(d.Payments)

	functions := r.Group("/functions/v1", Authenticate(d.Verifier))
	{
		functions.POST("/create-payment-intent", payments.CreatePaymentIntent)
		functions.POST("/confirm-payment", payments.ConfirmPayment)
	}

	admin := r.Group("/admin", Authenticate(d.Verifier), RequireAdmin())
	{
		admin.POST("/payments/test", payments.TestProvider)
		admin.GET("/payments/providers", payments.Providers)
		if d.Email != nil {
			admin.POST("/email/test", NewEmailHandler(d.Email).TestEmail)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", RequestIDHeader, "apikey", "x-client-info"},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
