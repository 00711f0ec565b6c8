package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"booking-payments/internal/infrastructure/email"

	"github.com/gin-gonic/gin"
)

type EmailTester interface {
	SendTest(ctx context.Context, to, providerName string) (email.SendResult, error)
}

type EmailHandler struct {
	email EmailTester
}

func NewEmailHandler(tester EmailTester) *EmailHandler {
	return &EmailHandler{email: tester}
}

type testEmailRequest struct {
	To       string `json:"to" binding:"required,email"`
	Provider string `json:"provider"`
}

// TestEmail handles POST /admin/email/test.
func (h *EmailHandler) TestEmail(c *gin.Context) {
	var req testEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid recipient address is required"})
		return
	}
	res, err := h.email.SendTest(c.Request.Context(), req.To, req.Provider)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": emailErrorMessage(c, err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    res.Success,
		"message_id": res.MessageID,
		"error":      res.Error,
	})
}

func emailErrorMessage(c *gin.Context, err error) string {
	switch {
	case errors.Is(err, email.ErrNoProviderConfigured):
		return "No email provider is configured and enabled"
	case errors.Is(err, email.ErrProviderNotEnabled):
		return "Email provider is not configured or not enabled"
	case errors.Is(err, email.ErrUnknownProvider):
		return "Unknown email provider"
	}
	slog.ErrorContext(c.Request.Context(), "test email failed", "error", err)
	return "Failed to send test email"
}
