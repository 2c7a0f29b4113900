package source

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

// 默认周期
const (
	DefaultSimInterval  = 1000 * time.Millisecond
	DefaultPollInterval = 500 * time.Millisecond
)

// ErrClosed 复用器已关闭
var ErrClosed = errors.New("multiplexer closed")

// Generator 模拟遥测生成器
type Generator interface {
	Reset()
	Next() models.TelemetryRecord
}

// Fetcher 拉取一次后端遥测
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (models.TelemetryRecord, error)
}

// Presenter 展示层接收端；在复用器锁内按顺序调用，实现方不得回调复用器
type Presenter interface {
	Render(record models.TelemetryRecord)
	RenderStatus(status models.ConnectionStatus)
}

// Options 复用器依赖
type Options struct {
	Generator    Generator
	Fetcher      Fetcher
	Presenter    Presenter
	Clock        Clock
	SimInterval  time.Duration
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Snapshot 复用器当前状态
type Snapshot struct {
	Mode       models.SourceMode       `json:"mode"`
	Status     models.ConnectionStatus `json:"status"`
	Endpoint   string                  `json:"endpoint,omitempty"`
	ProducerID string                  `json:"producer_id,omitempty"`
	Fallbacks  int                     `json:"fallbacks"`
}

// producer 一个周期生产者；id 即取消令牌，被替换后其 tick 结果一律丢弃
type producer struct {
	id       string
	mode     models.SourceMode
	endpoint string
	cancel   context.CancelFunc
}

// Multiplexer 遥测数据源复用器
// 任意时刻最多一个生产者处于注册状态；切换模式前先拆除旧生产者
type Multiplexer struct {
	mu sync.Mutex

	gen          Generator
	fetcher      Fetcher
	presenter    Presenter
	clock        Clock
	simInterval  time.Duration
	pollInterval time.Duration
	logger       *zap.Logger

	mode      models.SourceMode
	status    models.ConnectionStatus
	active    *producer
	fallbacks int
	closed    bool

	wg      sync.WaitGroup
	running int32

	// afterTick 仅测试使用：每个 tick 处理完成后调用
	afterTick func()
}

// NewMultiplexer 创建复用器（初始 mode=NONE，无生产者）
func NewMultiplexer(opts Options) *Multiplexer {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.SimInterval <= 0 {
		opts.SimInterval = DefaultSimInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Multiplexer{
		gen:          opts.Generator,
		fetcher:      opts.Fetcher,
		presenter:    opts.Presenter,
		clock:        opts.Clock,
		simInterval:  opts.SimInterval,
		pollInterval: opts.PollInterval,
		logger:       opts.Logger,
	}
}

// StartSimulation 启动模拟数据源
// 已在模拟：无操作；正在轮询后端：无操作（模拟只作为回退，不抢占真实连接）
func (m *Multiplexer) StartSimulation() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.startSimulationLocked()
}

func (m *Multiplexer) startSimulationLocked() {
	if m.closed {
		return
	}

	switch m.mode {
	case models.ModeSimulating:
		return
	case models.ModePolling:
		m.logger.Debug("Simulation request ignored while polling backend",
			zap.String("endpoint", m.active.endpoint),
		)
		return
	}

	m.teardownLocked()
	m.gen.Reset()
	m.mode = models.ModeSimulating
	m.setStatusLocked(models.SimulatedStatus())
	p := m.launchLocked(models.ModeSimulating, "", m.simInterval)

	m.logger.Info("Simulation started",
		zap.String("producer_id", p.id),
		zap.Duration("interval", m.simInterval),
	)
}

// ConnectToBackend 切换到后端轮询；无条件拆除当前生产者
// 地址非法时返回 ErrInvalidEndpoint，状态保持不变
func (m *Multiplexer) ConnectToBackend(endpoint string) error {
	if err := ValidateEndpoint(endpoint); err != nil {
		return err
	}
	endpoint = strings.TrimSpace(endpoint)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.teardownLocked()
	m.mode = models.ModePolling
	m.setStatusLocked(models.ConnectingStatus())
	p := m.launchLocked(models.ModePolling, endpoint, m.pollInterval)

	m.logger.Info("Polling backend",
		zap.String("producer_id", p.id),
		zap.String("endpoint", endpoint),
		zap.Duration("interval", m.pollInterval),
	)
	return nil
}

// Stop 拆除当前生产者，mode=NONE；可重复调用，状态文案保持不变
func (m *Multiplexer) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.logger.Info("Telemetry source stopped", zap.String("mode", m.mode.String()))
	}
	m.teardownLocked()
	m.mode = models.ModeNone
}

// Close 停止并等待所有生产者 goroutine 退出；之后的启动请求被忽略
func (m *Multiplexer) Close() {
	m.mu.Lock()
	m.closed = true
	m.teardownLocked()
	m.mode = models.ModeNone
	m.mu.Unlock()

	m.wg.Wait()
}

// Snapshot 返回当前状态
func (m *Multiplexer) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Mode:      m.mode,
		Status:    m.status,
		Fallbacks: m.fallbacks,
	}
	if m.active != nil {
		s.Endpoint = m.active.endpoint
		s.ProducerID = m.active.id
	}
	return s
}

func (m *Multiplexer) Mode() models.SourceMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *Multiplexer) Status() models.ConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// teardownLocked 取消当前生产者；其 goroutine 异步退出，迟到的结果由令牌校验丢弃
func (m *Multiplexer) teardownLocked() {
	if m.active == nil {
		return
	}
	m.active.cancel()
	m.active = nil
}

func (m *Multiplexer) setStatusLocked(status models.ConnectionStatus) {
	if m.status == status {
		return
	}
	m.status = status
	if m.presenter != nil {
		m.presenter.RenderStatus(status)
	}
}

func (m *Multiplexer) launchLocked(mode models.SourceMode, endpoint string, interval time.Duration) *producer {
	ctx, cancel := context.WithCancel(context.Background())
	p := &producer{
		id:       uuid.NewString(),
		mode:     mode,
		endpoint: endpoint,
		cancel:   cancel,
	}
	m.active = p

	ticker := m.clock.NewTicker(interval)
	m.wg.Add(1)
	atomic.AddInt32(&m.running, 1)
	go m.run(ctx, p, ticker)

	return p
}

func (m *Multiplexer) run(ctx context.Context, p *producer, ticker Ticker) {
	defer m.wg.Done()
	defer atomic.AddInt32(&m.running, -1)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			// 取消与待处理的 tick 同时就绪时 select 随机选择
			if ctx.Err() != nil {
				return
			}
			if p.mode == models.ModePolling {
				m.pollTick(ctx, p)
			} else {
				m.simulateTick(p)
			}
			if m.afterTick != nil {
				m.afterTick()
			}
		}
	}
}

func (m *Multiplexer) simulateTick(p *producer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != p {
		return
	}

	record := m.gen.Next()
	if m.presenter != nil {
		m.presenter.Render(record)
	}
}

func (m *Multiplexer) pollTick(ctx context.Context, p *producer) {
	m.mu.Lock()
	live := m.active == p
	m.mu.Unlock()
	if !live {
		return
	}

	// 网络请求在锁外执行，是唯一的挂起点
	record, err := m.fetcher.Fetch(ctx, p.endpoint)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != p {
		m.logger.Debug("Discarding stale poll result",
			zap.String("producer_id", p.id),
			zap.Bool("failed", err != nil),
		)
		return
	}

	if err != nil {
		m.logger.Warn("Backend poll failed, falling back to simulation",
			zap.String("producer_id", p.id),
			zap.String("endpoint", p.endpoint),
			zap.Error(err),
		)
		m.teardownLocked()
		m.mode = models.ModeNone
		m.fallbacks++
		m.setStatusLocked(models.DisconnectedStatus())
		m.startSimulationLocked()
		return
	}

	if m.presenter != nil {
		m.presenter.Render(record)
	}
	m.setStatusLocked(models.ConnectedStatus())
}

// activeProducers 已注册的生产者数量（0 或 1）
func (m *Multiplexer) activeProducers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return 0
	}
	return 1
}

// runningProducers 仍在运行的 goroutine 数量（被取消的生产者会异步退出）
func (m *Multiplexer) runningProducers() int {
	return int(atomic.LoadInt32(&m.running))
}
