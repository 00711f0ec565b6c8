package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"booking-payments/internal/service"

	"github.com/gin-gonic/gin"
)

// writeError maps orchestration errors to 401 for unauthorized callers and
// 400 for everything else, with an {"error"} body. Unexpected errors never
// leak their text.
func writeError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		se = &service.Error{Kind: service.KindInternal, Message: "Internal server error", Err: err}
	}

	status := http.StatusBadRequest
	switch se.Kind {
	case service.KindUnauthorized:
		status = http.StatusUnauthorized
	case service.KindInternal:
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": se.Message})
}
