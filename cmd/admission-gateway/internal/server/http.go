package server

import (
	"net/http"

	"costwarden/cmd/admission-gateway/internal/service"
	"costwarden/pkg/middleware"

	"github.com/gin-gonic/gin"
	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"go.uber.org/zap"
)

// HTTPServer 准入网关 HTTP 服务
type HTTPServer struct {
	engine  *gin.Engine
	service *service.AdmissionService
	logger  *zap.Logger
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Mode      string
	JWTSecret string
}

// NewHTTPServer 创建 HTTP 服务
func NewHTTPServer(config *HTTPConfig, svc *service.AdmissionService, logger *zap.Logger) *HTTPServer {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Metrics("admission-gateway"))

	s := &HTTPServer{
		engine:  engine,
		service: svc,
		logger:  logger,
	}

	engine.GET("/health", s.health)

	api := engine.Group("/api/v1")
	api.Use(middleware.TenantAuth([]byte(config.JWTSecret)))
	{
		api.POST("/admission", s.admit)
		api.GET("/budgets/status", s.budgetStatuses)
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
		"service": "admission-gateway",
	})
}

// admit 准入入口。预期内的拒绝以 200 + success:false 返回，
// 调用方凭 block_reason 分支。
func (s *HTTPServer) admit(c *gin.Context) {
	var req service.AdmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := s.service.Admit(
		c.Request.Context(),
		middleware.TenantID(c),
		middleware.UserID(c),
		&req,
	)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) budgetStatuses(c *gin.Context) {
	statuses, err := s.service.BudgetStatuses(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"budgets": statuses,
		"count":   len(statuses),
	})
}

func (s *HTTPServer) writeError(c *gin.Context, err error) {
	if ke := kratoserrors.FromError(err); ke != nil {
		c.JSON(int(ke.Code), gin.H{
			"error":  ke.Message,
			"reason": ke.Reason,
		})
		return
	}
	s.logger.Error("unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
