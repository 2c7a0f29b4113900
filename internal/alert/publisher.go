package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/suvro-04/Driving-alert-system/internal/presenter"
	"go.uber.org/zap"
)

// MessagePublisher MQTT 发布的最小抽象（common/mqtt.Client 满足该接口）
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Message 告警消息
type Message struct {
	Signal    Signal `json:"signal"`
	Buzzer    bool   `json:"buzzer"`
	Vibration bool   `json:"vibration"`
	Timestamp int64  `json:"ts"`
}

// Publisher 将告警信号发布到 MQTT；仅在信号变化时发布（retained，新订阅者可拿到当前信号）
type Publisher struct {
	client MessagePublisher
	topic  string
	qos    byte
	logger *zap.Logger

	mu   sync.Mutex
	last Signal
}

// NewPublisher 创建告警发布器
func NewPublisher(client MessagePublisher, topic string, qos byte, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		topic:  topic,
		qos:    qos,
		logger: logger,
	}
}

func (p *Publisher) Name() string { return "mqtt-alert" }

// Handle 实现 presenter.Sink；状态事件忽略
func (p *Publisher) Handle(ctx context.Context, ev presenter.Event) error {
	if ev.Kind != presenter.EventTelemetry || ev.Record == nil {
		return nil
	}

	signal := Classify(*ev.Record)

	p.mu.Lock()
	defer p.mu.Unlock()

	if signal == p.last {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	msg := Message{
		Signal:    signal,
		Buzzer:    ev.Record.BuzzerActive,
		Vibration: ev.Record.BuzzerActive,
		Timestamp: at.UnixMilli(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if err := p.client.Publish(p.topic, p.qos, true, payload); err != nil {
		// 未更新 last，下一条记录会重试
		return err
	}

	p.logger.Info("Alert signal changed",
		zap.String("topic", p.topic),
		zap.String("from", string(p.last)),
		zap.String("to", string(signal)),
	)
	p.last = signal
	return nil
}

// Last 最近一次成功发布的信号
func (p *Publisher) Last() Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
