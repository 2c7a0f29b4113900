package presenter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

// 快照缓存键
const (
	KeyLatestTelemetry = "drowsy:latest:telemetry"
	KeyLatestView      = "drowsy:latest:view"
	KeyLatestStatus    = "drowsy:latest:status"
)

// SnapshotSink 将最新遥测/视图/状态写入 KV
// 遥测带 TTL：数据源停止后快照自然过期，/api/metrics 随之返回 404
type SnapshotSink struct {
	kv     KVStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotSink 创建快照输出端
func NewSnapshotSink(kv KVStore, ttl time.Duration, logger *zap.Logger) *SnapshotSink {
	return &SnapshotSink{kv: kv, ttl: ttl, logger: logger}
}

func (s *SnapshotSink) Name() string { return "snapshot" }

func (s *SnapshotSink) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventTelemetry:
		if err := s.setJSON(ctx, KeyLatestTelemetry, ev.Record, s.ttl); err != nil {
			return err
		}
		return s.setJSON(ctx, KeyLatestView, NewView(*ev.Record), s.ttl)
	case EventStatus:
		// 状态一直保持到下一次切换
		return s.setJSON(ctx, KeyLatestStatus, ev.Status, 0)
	}
	return nil
}

func (s *SnapshotSink) setJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(b), ttl); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// SnapshotReader 读取快照（HTTP 层使用）
type SnapshotReader struct {
	kv KVStore
}

func NewSnapshotReader(kv KVStore) *SnapshotReader {
	return &SnapshotReader{kv: kv}
}

// LatestTelemetryJSON 返回最新遥测的原始 JSON；不存在时返回 ErrCacheMiss
func (r *SnapshotReader) LatestTelemetryJSON(ctx context.Context) (string, error) {
	return r.kv.Get(ctx, KeyLatestTelemetry)
}

// LatestView 返回最新渲染视图
func (r *SnapshotReader) LatestView(ctx context.Context) (*View, error) {
	raw, err := r.kv.Get(ctx, KeyLatestView)
	if err != nil {
		return nil, err
	}
	var v View
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal view: %w", err)
	}
	return &v, nil
}

// LatestStatus 返回最新连接状态
func (r *SnapshotReader) LatestStatus(ctx context.Context) (*models.ConnectionStatus, error) {
	raw, err := r.kv.Get(ctx, KeyLatestStatus)
	if err != nil {
		return nil, err
	}
	var st models.ConnectionStatus
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &st, nil
}
