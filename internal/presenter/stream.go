package presenter

import (
	"context"
	"fmt"

	rediscommon "github.com/suvro-04/Driving-alert-system/common/redis"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

// StreamSink 将遥测与状态变化发布到 Redis Streams，供下游消费者（记录仪、告警服务）订阅
type StreamSink struct {
	client rediscommon.StreamAdder
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamSink 创建 Streams 输出端
func NewStreamSink(client rediscommon.StreamAdder, stream string, maxLen int64, logger *zap.Logger) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: maxLen, logger: logger}
}

func (s *StreamSink) Name() string { return "redis-stream" }

func (s *StreamSink) Handle(ctx context.Context, ev Event) error {
	var payload interface{}
	switch ev.Kind {
	case EventTelemetry:
		payload = streamTelemetry{TelemetryRecord: *ev.Record, Timestamp: ev.At.UnixMilli()}
	case EventStatus:
		payload = streamStatus{ConnectionStatus: *ev.Status, Timestamp: ev.At.UnixMilli()}
	default:
		return nil
	}

	id, err := rediscommon.PublishJSONToStream(ctx, s.client, s.stream, s.maxLen, string(ev.Kind), payload)
	if err != nil {
		return fmt.Errorf("failed to publish to stream %s: %w", s.stream, err)
	}

	s.logger.Debug("Published to Redis Streams",
		zap.String("stream", s.stream),
		zap.String("stream_id", id),
		zap.String("kind", string(ev.Kind)),
	)
	return nil
}

type streamTelemetry struct {
	models.TelemetryRecord
	Timestamp int64 `json:"ts"`
}

type streamStatus struct {
	models.ConnectionStatus
	Timestamp int64 `json:"ts"`
}
