package httptransport

import (
	"github.com/gin-gonic/gin"

	apperrors "modelgate-server-go/internal/platform/errors"
)

// RespondError writes the typed error envelope with its fixed HTTP status,
// attaching the request trace id when the error does not carry one yet.
func RespondError(c *gin.Context, runErr *apperrors.AiRunError) {
	runErr = runErr.WithTrace(TraceID(c))
	c.JSON(runErr.Status, runErr.Wire())
}

// AbortError writes the error envelope and stops the handler chain.
func AbortError(c *gin.Context, runErr *apperrors.AiRunError) {
	runErr = runErr.WithTrace(TraceID(c))
	c.AbortWithStatusJSON(runErr.Status, runErr.Wire())
}
