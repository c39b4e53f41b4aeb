package server

import (
	"net/http"
	"strconv"

	"costwarden/cmd/alert-engine/internal/service"
	"costwarden/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HTTPServer 告警引擎 HTTP 服务
type HTTPServer struct {
	engine  *gin.Engine
	service *service.AlertService
	logger  *zap.Logger
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Mode      string
	JWTSecret string
}

// NewHTTPServer 创建 HTTP 服务
func NewHTTPServer(config *HTTPConfig, svc *service.AlertService, logger *zap.Logger) *HTTPServer {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Metrics("alert-engine"))

	s := &HTTPServer{
		engine:  engine,
		service: svc,
		logger:  logger,
	}

	engine.GET("/health", s.health)

	api := engine.Group("/api/v1")
	api.Use(middleware.TenantAuth([]byte(config.JWTSecret)))
	{
		api.GET("/alerts", s.listAlerts)
		api.POST("/alerts/sweep", s.sweepNow)
	}

	return s
}

// Engine 返回底层 gin 引擎
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "alert-engine",
	})
}

func (s *HTTPServer) listAlerts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	alerts, err := s.service.ListRecent(c.Request.Context(), middleware.TenantID(c), limit)
	if err != nil {
		s.logger.Error("failed to list alerts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *HTTPServer) sweepNow(c *gin.Context) {
	if err := s.service.SweepNow(c.Request.Context(), middleware.TenantID(c)); err != nil {
		s.logger.Error("manual sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "swept"})
}
