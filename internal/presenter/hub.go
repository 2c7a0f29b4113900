package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

// SSE 事件类型
const (
	SSEReady     = "ready"
	SSETelemetry = "telemetry"
	SSEStatus    = "status"
	SSEHeartbeat = "heartbeat"
)

// ErrStreamingUnsupported ResponseWriter 不支持 Flush
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SSEEvent 一条 SSE 事件；ID 为 0 时不写 id 行（不可续传）
type SSEEvent struct {
	ID   int64       `json:"id,omitempty"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type sseClient struct {
	id     string
	events chan SSEEvent
}

// HubConfig SSE Hub 配置
type HubConfig struct {
	BufferSize        int           // 续传缓冲区容量
	ClientQueueSize   int           // 每个客户端的待发送队列
	HeartbeatInterval time.Duration // 0 表示不发送心跳
}

// Hub SSE 推送中心：向仪表盘页面推送遥测视图与连接状态
// 支持 Last-Event-ID 续传（有界缓冲区），慢客户端丢弃事件而不阻塞发布
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*sseClient
	nextID  int64
	buffer  []SSEEvent

	latestView   *View
	latestStatus *models.ConnectionStatus

	config HubConfig
	logger *zap.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHub 创建 Hub
func NewHub(cfg HubConfig, logger *zap.Logger) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.ClientQueueSize <= 0 {
		cfg.ClientQueueSize = 32
	}
	return &Hub{
		clients: make(map[string]*sseClient),
		buffer:  make([]SSEEvent, 0, cfg.BufferSize),
		config:  cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (h *Hub) Name() string { return "sse" }

// Handle 实现 Sink
func (h *Hub) Handle(ctx context.Context, ev Event) error {
	switch ev.Kind {
	case EventTelemetry:
		v := NewView(*ev.Record)
		h.mu.Lock()
		h.latestView = &v
		h.mu.Unlock()
		h.Publish(SSEEvent{Type: SSETelemetry, Data: v})
	case EventStatus:
		st := *ev.Status
		h.mu.Lock()
		h.latestStatus = &st
		h.mu.Unlock()
		h.Publish(SSEEvent{Type: SSEStatus, Data: st})
	}
	return nil
}

// Start 启动心跳
func (h *Hub) Start(ctx context.Context) {
	if h.config.HeartbeatInterval <= 0 {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		ticker := time.NewTicker(h.config.HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-h.done:
				return
			case t := <-ticker.C:
				h.broadcast(SSEEvent{
					Type: SSEHeartbeat,
					Data: map[string]string{"ts": t.UTC().Format(time.RFC3339)},
				})
			}
		}
	}()
}

// Publish 分配 ID、写入续传缓冲区并广播
func (h *Hub) Publish(ev SSEEvent) {
	h.mu.Lock()
	h.nextID++
	ev.ID = h.nextID
	h.buffer = append(h.buffer, ev)
	if len(h.buffer) > h.config.BufferSize {
		h.buffer = h.buffer[len(h.buffer)-h.config.BufferSize:]
	}
	h.mu.Unlock()

	h.broadcast(ev)
}

func (h *Hub) broadcast(ev SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.clients {
		select {
		case c.events <- ev:
		default:
			h.logger.Debug("SSE client slow, dropping event",
				zap.String("client_id", c.id),
				zap.Int64("event_id", ev.ID),
			)
		}
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribe 处理一个 SSE 连接，阻塞直到客户端断开或 Hub 停止
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var lastID int64
	if s := r.Header.Get("Last-Event-ID"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			lastID = id
		}
	}

	c := &sseClient{
		id:     uuid.NewString(),
		events: make(chan SSEEvent, h.config.ClientQueueSize),
	}

	// 注册与取回放数据在同一把锁内完成，避免漏掉中间事件
	h.mu.Lock()
	ready := SSEEvent{Type: SSEReady, Data: map[string]interface{}{
		"status":    h.latestStatus,
		"telemetry": h.latestView,
	}}
	var replay []SSEEvent
	if lastID > 0 {
		for _, ev := range h.buffer {
			if ev.ID > lastID {
				replay = append(replay, ev)
			}
		}
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	defer h.unregister(c.id)

	h.logger.Debug("SSE client connected", zap.String("client_id", c.id), zap.Int64("last_event_id", lastID))

	if err := writeSSE(w, flusher, ready); err != nil {
		return err
	}
	for _, ev := range replay {
		if err := writeSSE(w, flusher, ev); err != nil {
			return err
		}
		// 注册前写入缓冲区的事件随后仍会经 c.events 到达
		lastID = ev.ID
	}

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-h.done:
			return nil
		case ev := <-c.events:
			if lastID > 0 && ev.ID != 0 && ev.ID <= lastID {
				continue
			}
			if err := writeSSE(w, flusher, ev); err != nil {
				return err
			}
		}
	}
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Stop 断开所有客户端并停止心跳
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
	h.wg.Wait()
}

func writeSSE(w http.ResponseWriter, f http.Flusher, ev SSEEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if ev.ID > 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", ev.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	f.Flush()
	return nil
}
