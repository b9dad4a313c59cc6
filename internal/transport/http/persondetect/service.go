package persondetect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domaindetect "modelgate-server-go/internal/domain/detect"
	domainimage "modelgate-server-go/internal/domain/image"
	"modelgate-server-go/internal/platform/config"
	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
	httptransport "modelgate-server-go/internal/transport/http"
)

// Service is the HTTP surface of the person-detection operation. It accepts
// either a JSON body referencing an image URL or a multipart upload, and
// converges both on the same ingestion and detection pipeline.
type Service struct {
	detector *domaindetect.Service
	ingestor *domainimage.Ingestor
	maxBytes int64
	logger   *logging.Logger
}

// NewService creates the person-detection service.
func NewService(cfg *config.Config, detector *domaindetect.Service, ingestor *domainimage.Ingestor, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "config is required")
	}
	if detector == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "detector is required")
	}
	if ingestor == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "ingestor is required")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "logger is required")
	}
	return &Service{
		detector: detector,
		ingestor: ingestor,
		maxBytes: cfg.Detection.MaxImageBytes,
		logger:   logger,
	}, nil
}

// Register mounts the detection routes.
func (s *Service) Register(router *gin.RouterGroup) {
	router.POST("/ai/detect-person", s.handleDetect)
	s.logger.InfoTag("HTTP", "person-detection routes registered")
}

type detectJSONRequest struct {
	URL          string   `json:"url" binding:"required,url"`
	Threshold    *float64 `json:"threshold"`
	MinAreaRatio *float64 `json:"minAreaRatio"`
	Model        string   `json:"model"`
}

func (s *Service) handleDetect(c *gin.Context) {
	traceID := httptransport.TraceID(c)

	var (
		asset  *domainimage.Asset
		params domaindetect.Params
		runErr *apperrors.AiRunError
	)

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		asset, params, runErr = s.parseMultipart(c)
	} else {
		asset, params, runErr = s.parseJSON(c)
	}
	if runErr != nil {
		httptransport.RespondError(c, runErr)
		return
	}

	isPerson, runErr := s.detector.DetectPerson(c.Request.Context(), asset, params, traceID)
	if runErr != nil {
		httptransport.RespondError(c, runErr)
		return
	}

	c.JSON(200, gin.H{"success": true, "isPerson": isPerson})
}

func (s *Service) parseJSON(c *gin.Context) (*domainimage.Asset, domaindetect.Params, *apperrors.AiRunError) {
	var req detectJSONRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, domaindetect.Params{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid detection request body", err)
	}

	params := domaindetect.Params{
		Threshold:    req.Threshold,
		MinAreaRatio: req.MinAreaRatio,
		Model:        req.Model,
	}
	if runErr := validateParams(params); runErr != nil {
		return nil, domaindetect.Params{}, runErr
	}

	asset, runErr := s.ingestor.FetchURL(c.Request.Context(), req.URL, s.maxBytes)
	if runErr != nil {
		return nil, domaindetect.Params{}, runErr
	}
	return asset, params, nil
}

func (s *Service) parseMultipart(c *gin.Context) (*domainimage.Asset, domaindetect.Params, *apperrors.AiRunError) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, domaindetect.Params{}, apperrors.Wrap(apperrors.CodeInvalidInput, "file field is required", err)
	}

	params := domaindetect.Params{Model: c.PostForm("model")}
	var runErr *apperrors.AiRunError
	if params.Threshold, runErr = formFloat(c, "threshold"); runErr != nil {
		return nil, domaindetect.Params{}, runErr
	}
	if params.MinAreaRatio, runErr = formFloat(c, "minAreaRatio"); runErr != nil {
		return nil, domaindetect.Params{}, runErr
	}
	if runErr := validateParams(params); runErr != nil {
		return nil, domaindetect.Params{}, runErr
	}

	asset, runErr := s.ingestor.FromUpload(header, s.maxBytes)
	if runErr != nil {
		return nil, domaindetect.Params{}, runErr
	}
	return asset, params, nil
}

func formFloat(c *gin.Context, field string) (*float64, *apperrors.AiRunError) {
	raw := c.PostForm(field)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("invalid %s value", field), err)
	}
	return &value, nil
}

func validateParams(params domaindetect.Params) *apperrors.AiRunError {
	if params.Threshold != nil && (*params.Threshold < 0 || *params.Threshold > 1) {
		return apperrors.New(apperrors.CodeInvalidInput, "threshold must be within [0,1]")
	}
	if params.MinAreaRatio != nil && (*params.MinAreaRatio < 0 || *params.MinAreaRatio > 1) {
		return apperrors.New(apperrors.CodeInvalidInput, "minAreaRatio must be within [0,1]")
	}
	return nil
}
