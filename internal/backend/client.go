package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

var (
	// ErrBadStatus 后端返回非 2xx
	ErrBadStatus = errors.New("backend returned non-success status")
	// ErrDecode 响应体不是合法的遥测 JSON
	ErrDecode = errors.New("malformed telemetry body")
)

// Client 检测后端 HTTP 客户端：每次调用执行一次 GET，不重试
// 失败由上层（数据源复用器）统一转为回退
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewClient 创建后端客户端
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: httpClient,
		logger:     logger,
	}
}

// Fetch 拉取一条遥测记录
func (c *Client) Fetch(ctx context.Context, endpoint string) (models.TelemetryRecord, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		return models.TelemetryRecord{}, fmt.Errorf("failed to call backend: %w", err)
	}

	if !resp.IsSuccess() {
		c.logger.Debug("Backend returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status_code", resp.StatusCode()),
		)
		return models.TelemetryRecord{}, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode())
	}

	var record models.TelemetryRecord
	if err := json.Unmarshal(resp.Body(), &record); err != nil {
		return models.TelemetryRecord{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return record, nil
}
