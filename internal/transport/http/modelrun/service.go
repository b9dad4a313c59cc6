package modelrun

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"modelgate-server-go/internal/domain/run"
	"modelgate-server-go/internal/platform/config"
	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
	httptransport "modelgate-server-go/internal/transport/http"
)

// Service is the HTTP surface of the generic model-run operation.
type Service struct {
	invoker *run.Invoker
	timeout time.Duration
	logger  *logging.Logger
}

// NewService creates the model-run service.
func NewService(cfg *config.Config, invoker *run.Invoker, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "config is required")
	}
	if invoker == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "invoker is required")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "logger is required")
	}
	return &Service{
		invoker: invoker,
		timeout: time.Duration(cfg.AI.TimeoutMs) * time.Millisecond,
		logger:  logger,
	}, nil
}

// Register mounts the model-run routes.
func (s *Service) Register(router *gin.RouterGroup) {
	router.POST("/ai/run", s.handleRun)
	s.logger.InfoTag("HTTP", "model-run routes registered")
}

type runRequest struct {
	Model   string         `json:"model" binding:"required"`
	Input   any            `json:"input"`
	Options map[string]any `json:"options"`
}

func (s *Service) handleRun(c *gin.Context) {
	traceID := httptransport.TraceID(c)

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondError(c, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid run request body", err))
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		httptransport.RespondError(c, apperrors.New(apperrors.CodeInvalidInput, "model is required"))
		return
	}

	result, runErr := s.invoker.Invoke(c.Request.Context(), run.Invocation{
		Model:   req.Model,
		Input:   req.Input,
		Options: req.Options,
		Timeout: s.timeout,
		TraceID: traceID,
	})
	if runErr != nil {
		httptransport.RespondError(c, runErr)
		return
	}

	// Byte-stream results (audio, generated images) pass through verbatim.
	if result.Binary != nil {
		contentType := result.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Data(200, contentType, result.Binary)
		return
	}

	c.JSON(200, result.JSON)
}
