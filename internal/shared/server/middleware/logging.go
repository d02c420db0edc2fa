package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"esign-backend/internal/shared/telemetry"
)

// Handler-set context keys mirrored into the request log when present.
var loggedContextKeys = map[string]string{
	userIDKey:          "user_id",
	"isGuest":          "is_guest",
	"documentId":       "document_id",
	"signerEmail":      "signer_email",
	"statusTransition": "status_transition",
}

// Logging emits one structured line per request, levelled by response
// status. Preflight requests are skipped.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      status,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for ctxKey, field := range loggedContextKeys {
			if val, ok := c.Get(ctxKey); ok {
				fields[field] = val
			}
		}

		switch {
		case status >= 500:
			telemetry.Error("request.complete", fields)
		case status >= 400:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
