package presenter

import (
	"context"

	"go.uber.org/zap"
)

// LogSink 以结构化日志输出（遥测为 Debug，状态为 Info）
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventTelemetry:
		r := ev.Record
		s.logger.Debug("Telemetry",
			zap.Float64("ear", r.EAR),
			zap.Int("blink_rate", r.BlinkRate),
			zap.Int("yawn_count", r.YawnCount),
			zap.Int("head_tilt", r.HeadTilt),
			zap.String("state", string(r.State)),
			zap.Bool("buzzer_active", r.BuzzerActive),
		)
	case EventStatus:
		s.logger.Info("Connection status changed",
			zap.String("status", string(ev.Status.Kind)),
			zap.String("message", ev.Status.Message),
		)
	}
	return nil
}
