// Package router 外部提供商路由的 HTTP 适配器。
// 实际的上游模型调用在路由服务内完成，这里只负责转发与失败分类。
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sony/gobreaker"
)

// ClientConfig 路由客户端配置
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client 提供商路由客户端，带熔断保护
type Client struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *log.Helper
}

// NewClient 创建路由客户端
func NewClient(config *ClientConfig, logger log.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "provider-router",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		baseURL: config.BaseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
		log:     log.NewHelper(logger),
	}
}

type routeRequestDTO struct {
	TenantID    string           `json:"tenant_id"`
	Model       string           `json:"model"`
	Messages    []domain.Message `json:"messages"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
}

type routeResponseDTO struct {
	Text      string `json:"text"`
	TokensIn  int    `json:"tokens_in"`
	TokensOut int    `json:"tokens_out"`
	Provider  string `json:"provider"`
	RawID     string `json:"raw_id"`
}

type routeErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// noProviderCode 路由服务用显式错误码标识"无提供商配置"，
// 不靠错误消息子串判断
const noProviderCode = "NO_PROVIDER_CONFIGURED"

// Route 调用外部提供商路由
func (c *Client) Route(ctx context.Context, req *domain.RouteRequest) (*domain.RouteResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRoute(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.RouteResponse), nil
}

func (c *Client) doRoute(ctx context.Context, req *domain.RouteRequest) (*domain.RouteResponse, error) {
	body, err := json.Marshal(&routeRequestDTO{
		TenantID:    req.TenantID,
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/route", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider router unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var routeErr routeErrorDTO
		if jerr := json.Unmarshal(data, &routeErr); jerr == nil && routeErr.Code == noProviderCode {
			return nil, fmt.Errorf("%w: tenant %s", domain.ErrNoProviderConfigured, req.TenantID)
		}
		if routeErr.Message != "" {
			return nil, fmt.Errorf("provider router returned %d: %s", resp.StatusCode, routeErr.Message)
		}
		return nil, fmt.Errorf("provider router returned %d", resp.StatusCode)
	}

	var dto routeResponseDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("invalid router response: %w", err)
	}

	return &domain.RouteResponse{
		Text:      dto.Text,
		TokensIn:  dto.TokensIn,
		TokensOut: dto.TokensOut,
		Provider:  dto.Provider,
		RawID:     dto.RawID,
	}, nil
}
