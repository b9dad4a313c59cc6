package status

import (
	"time"

	"github.com/gin-gonic/gin"

	"modelgate-server-go/internal/platform/config"
	apperrors "modelgate-server-go/internal/platform/errors"
	"modelgate-server-go/internal/platform/logging"
	"modelgate-server-go/internal/utils"
)

// Service reports process health and host resource usage.
type Service struct {
	cfg     *config.Config
	logger  *logging.Logger
	started time.Time
}

func NewService(cfg *config.Config, logger *logging.Logger) (*Service, error) {
	if cfg == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "config is required")
	}
	if logger == nil {
		return nil, apperrors.New(apperrors.CodeRunException, "logger is required")
	}
	return &Service{cfg: cfg, logger: logger, started: time.Now()}, nil
}

// Register mounts the status route.
func (s *Service) Register(router *gin.RouterGroup) {
	router.GET("/status", s.handleStatus)
	s.logger.InfoTag("HTTP", "status routes registered")
}

func (s *Service) handleStatus(c *gin.Context) {
	memory, err := utils.GetSystemMemoryUsage()
	if err != nil {
		s.logger.WarnTag("HTTP", "memory usage unavailable: %v", err)
	}
	cpu, err := utils.GetSystemCPUUsage()
	if err != nil {
		s.logger.WarnTag("HTTP", "cpu usage unavailable: %v", err)
	}

	c.JSON(200, gin.H{
		"status":        "ok",
		"uptimeSeconds": int64(time.Since(s.started).Seconds()),
		"provider":      s.cfg.AI.Provider,
		"system": gin.H{
			"memoryPercent": memory,
			"cpuPercent":    cpu,
		},
	})
}
