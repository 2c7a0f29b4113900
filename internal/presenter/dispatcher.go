package presenter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

// EventKind 事件类型
type EventKind string

const (
	EventTelemetry EventKind = "telemetry"
	EventStatus    EventKind = "status"
)

// Event 分发给各 Sink 的事件；Record/Status 二选一
type Event struct {
	Kind   EventKind
	Record *models.TelemetryRecord
	Status *models.ConnectionStatus
	At     time.Time
}

// Sink 展示层输出端（SSE、Redis、MQTT、会话报告等）
type Sink interface {
	Name() string
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher 实现 source.Presenter：按顺序入队，由单个 goroutine 扇出到各 Sink
// 遥测在队列满时丢弃，状态变化不丢弃
type Dispatcher struct {
	sinks  []Sink
	queue  chan Event
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	started bool
	closed  bool
	dropped int64
	stop    chan struct{}
	done    chan struct{}
}

// NewDispatcher 创建分发器
func NewDispatcher(queueSize int, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Dispatcher{
		sinks:  sinks,
		queue:  make(chan Event, queueSize),
		logger: logger,
		now:    time.Now,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start 启动分发 goroutine
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	go d.loop(ctx)
}

// Render 遥测记录入队
func (d *Dispatcher) Render(record models.TelemetryRecord) {
	select {
	case <-d.stop:
		return
	default:
	}

	ev := Event{Kind: EventTelemetry, Record: &record, At: d.now()}
	select {
	case d.queue <- ev:
	default:
		if n := atomic.AddInt64(&d.dropped, 1); n%100 == 1 {
			d.logger.Warn("Presenter queue full, dropping telemetry", zap.Int64("dropped", n))
		}
	}
}

// RenderStatus 状态变化入队（阻塞直到入队或分发器关闭）
func (d *Dispatcher) RenderStatus(status models.ConnectionStatus) {
	ev := Event{Kind: EventStatus, Status: &status, At: d.now()}
	select {
	case d.queue <- ev:
	case <-d.stop:
	}
}

// Dropped 因队列满被丢弃的遥测数量
func (d *Dispatcher) Dropped() int64 {
	return atomic.LoadInt64(&d.dropped)
}

// Close 停止入队，排空已入队事件后返回
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.stop)
	started := d.started
	d.mu.Unlock()

	if !started {
		close(d.done)
	}

	<-d.done
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.done)
	// 生命周期由 Close 控制；上游取消后仍需把排空的事件写入 Redis 等
	ctx = context.WithoutCancel(ctx)

	for {
		select {
		case ev := <-d.queue:
			d.dispatch(ctx, ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.dispatch(ctx, ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		if err := s.Handle(ctx, ev); err != nil {
			d.logger.Error("Sink failed to handle event",
				zap.String("sink", s.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.Error(err),
			)
		}
	}
}
