package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"booking-payments/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	contextCaller   = "caller"
)

type requestIDKey struct{}

// RequestIDFrom returns the request id stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID reuses an incoming X-Request-ID or generates one, echoes it on the
// response and stores it on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, id))
		c.Next()
	}
}

type RequestObserver interface {
	ObserveHTTPRequest(method, path, status string, elapsed time.Duration)
}

// AccessLog writes one structured line per request and reports it to observer
// when set.
func AccessLog(observer RequestObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"size", c.Writer.Size(),
		)
		if observer != nil {
			observer.ObserveHTTPRequest(c.Request.Method, path, strconv.Itoa(status), elapsed)
		}
	}
}

// Authenticate resolves the bearer token into a caller. A missing or invalid
// token leaves the request anonymous; each operation decides what that means.
func Authenticate(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			c.Next()
			return
		}
		caller, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			slog.DebugContext(c.Request.Context(), "bearer token rejected", "error", err)
			c.Next()
			return
		}
		c.Set(contextCaller, caller)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFrom(c)
		if caller == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		if !caller.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admins only"})
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) *auth.Caller {
	if v, ok := c.Get(contextCaller); ok {
		if caller, ok := v.(*auth.Caller); ok {
			return caller
		}
	}
	return nil
}

// ContextLogHandler adds the request id to every record logged with a
// request context.
type ContextLogHandler struct {
	slog.Handler
}

func NewContextLogHandler(h slog.Handler) *ContextLogHandler {
	return &ContextLogHandler{Handler: h}
}

func (h *ContextLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestIDFrom(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextLogHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextLogHandler) WithGroup(name string) slog.Handler {
	return &ContextLogHandler{Handler: h.Handler.WithGroup(name)}
}
