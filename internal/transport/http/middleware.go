package httptransport

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
)

const traceIDKey = "trace_id"

// traceHeaders are consulted in order when deriving the request trace id.
var traceHeaders = []string{"x-request-id", "x-trace-id", "cf-ray"}

// TraceMiddleware derives a per-request trace id from the inbound headers,
// generating a fresh one when none is present, and echoes it back.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var traceID string
		for _, header := range traceHeaders {
			if v := c.GetHeader(header); v != "" {
				traceID = v
				break
			}
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(traceIDKey, traceID)
		c.Header("x-request-id", traceID)
		c.Next()
	}
}

// TraceID returns the trace id derived for the current request.
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}

// APIKeyAuth compares the x-api-key header against the configured secret.
// An unconfigured secret or missing header is unauthorized; a mismatch is
// forbidden.
func APIKeyAuth(secret string, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			logger.WarnTag("AUTH", "api key auth requested but no secret configured")
			AbortError(c, apperrors.New(apperrors.CodeUnauthorized, "api key auth is not configured"))
			return
		}

		provided := c.GetHeader("x-api-key")
		if provided == "" {
			AbortError(c, apperrors.New(apperrors.CodeUnauthorized, "missing x-api-key header"))
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			logger.WarnTag("AUTH", "rejected request with mismatched api key")
			AbortError(c, apperrors.New(apperrors.CodeForbidden, "invalid api key"))
			return
		}

		c.Next()
	}
}
