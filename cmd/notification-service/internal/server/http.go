package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"costwarden/cmd/notification-service/internal/domain"
	ws "costwarden/cmd/notification-service/internal/infra/websocket"
	"costwarden/cmd/notification-service/internal/service"
	"costwarden/pkg/middleware"
)

// HTTPServer 通知服务 HTTP 服务
type HTTPServer struct {
	engine   *gin.Engine
	service  *service.DeliveryService
	hub      *ws.Hub
	upgrader gorillaws.Upgrader
	logger   *zap.Logger
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Mode      string
	JWTSecret string
}

// NewHTTPServer 创建 HTTP 服务
func NewHTTPServer(config *HTTPConfig, svc *service.DeliveryService, hub *ws.Hub, logger *zap.Logger) *HTTPServer {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Metrics("notification-service"))

	s := &HTTPServer{
		engine:  engine,
		service: svc,
		hub:     hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}

	engine.GET("/health", s.health)

	api := engine.Group("/api/v1")
	api.Use(middleware.TenantAuth([]byte(config.JWTSecret)))
	{
		api.GET("/deliveries", s.listDeliveries)
		api.POST("/deliveries/:id/resend", s.resendDelivery)
		api.GET("/ws", s.serveWebSocket)
	}

	return s
}

// Engine 返回底层 gin 引擎
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

func (s *HTTPServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"service":     "notification-service",
		"connections": s.hub.ConnectionCount(),
	})
}

func (s *HTTPServer) listDeliveries(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	deliveries, err := s.service.ListByTenant(c.Request.Context(), middleware.TenantID(c), limit)
	if err != nil {
		s.logger.Error("failed to list deliveries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

func (s *HTTPServer) resendDelivery(c *gin.Context) {
	delivery, err := s.service.Resend(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrTerminalDelivery) {
			c.JSON(http.StatusConflict, gin.H{"error": "delivery already sent"})
			return
		}
		s.logger.Error("failed to resend delivery", zap.String("delivery_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, delivery)
}

// serveWebSocket 升级连接并挂到站内信 hub
func (s *HTTPServer) serveWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(middleware.UserID(c), middleware.TenantID(c), conn)
	s.hub.Register(client)
}
