package detect

import (
	"context"
	"strings"
	"time"

	domainimage "modelgate-server-go/internal/domain/image"
	"modelgate-server-go/internal/domain/run"
	"modelgate-server-go/internal/platform/config"
	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
)

// Params are the request-supplied knobs of one detection. Nil pointers take
// the configured defaults.
type Params struct {
	Threshold    *float64
	MinAreaRatio *float64
	Model        string
}

// Service selects and applies one of the two interpretation strategies over
// the raw model result.
type Service struct {
	invoker *run.Invoker
	cfg     config.DetectionConfig
	timeout time.Duration
	logger  *logging.Logger
}

// NewService creates the detection service.
func NewService(invoker *run.Invoker, cfg config.DetectionConfig, timeout time.Duration, logger *logging.Logger) (*Service, error) {
	if invoker == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "model invoker is required")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "logger is required")
	}
	return &Service{
		invoker: invoker,
		cfg:     cfg,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// DetectPerson runs one detection over a normalised asset. The strategy is
// selected by the targeted model: the configured object-detection family uses
// bounding-box filtering, everything else the vision-language heuristic.
func (s *Service) DetectPerson(ctx context.Context, asset *domainimage.Asset, p Params, traceID string) (bool, *apperrors.AiRunError) {
	threshold := s.cfg.Threshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	minAreaRatio := s.cfg.MinAreaRatio
	if p.MinAreaRatio != nil {
		minAreaRatio = *p.MinAreaRatio
	}

	model := s.resolveModel(p.Model)

	if s.usesBoxStrategy(model) {
		return s.detectWithBoxes(ctx, asset, model, threshold, minAreaRatio, traceID)
	}
	return s.detectWithVision(ctx, asset, model, minAreaRatio, traceID)
}

// resolveModel falls back to the configured defaults when the request names
// no model: the object-detection model first, the vision model when no
// object-detection model is configured.
func (s *Service) resolveModel(requested string) string {
	if requested != "" {
		return requested
	}
	if s.cfg.ObjectModel != "" {
		return s.cfg.ObjectModel
	}
	return s.cfg.VisionModel
}

// usesBoxStrategy reports whether the model belongs to the object-detection
// family and therefore returns bounding boxes.
func (s *Service) usesBoxStrategy(model string) bool {
	if model == s.cfg.ObjectModel {
		return true
	}
	return strings.Contains(strings.ToLower(model), "detr")
}

func (s *Service) detectWithBoxes(ctx context.Context, asset *domainimage.Asset, model string, threshold, minAreaRatio float64, traceID string) (bool, *apperrors.AiRunError) {
	result, runErr := s.invoker.Invoke(ctx, run.Invocation{
		Model:   model,
		Input:   boxInput(asset),
		Timeout: s.timeout,
		TraceID: traceID,
	})
	if runErr != nil {
		return false, runErr
	}

	isPerson, evalErr := EvaluateBoxes(result.JSON, threshold, minAreaRatio)
	if evalErr != nil {
		return false, evalErr.WithTrace(traceID)
	}

	s.logger.DebugTag("DETECT", "bbox strategy: model=%s threshold=%.2f min_area=%.2f person=%t",
		model, threshold, minAreaRatio, isPerson)
	return isPerson, nil
}

func (s *Service) detectWithVision(ctx context.Context, asset *domainimage.Asset, model string, minAreaRatio float64, traceID string) (bool, *apperrors.AiRunError) {
	result, runErr := s.invoker.Invoke(ctx, run.Invocation{
		Model:   model,
		Input:   VisionInput(asset, minAreaRatio),
		Timeout: s.timeout,
		TraceID: traceID,
	})
	if runErr != nil {
		return false, runErr
	}

	isPerson, evalErr := EvaluateVisionReply(result.JSON)
	if evalErr != nil {
		return false, evalErr.WithTrace(traceID)
	}

	s.logger.DebugTag("DETECT", "vision strategy: model=%s person=%t", model, isPerson)
	return isPerson, nil
}

// boxInput inlines the image as a plain byte-value array, the shape the
// object-detection models consume.
func boxInput(asset *domainimage.Asset) map[string]any {
	values := make([]int, len(asset.Bytes))
	for i, b := range asset.Bytes {
		values[i] = int(b)
	}
	return map[string]any{"image": values}
}
