package source

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"github.com/suvro-04/Driving-alert-system/internal/simulator"
	"go.uber.org/zap"
)

var errBackendDown = errors.New("connection refused")

// fakeTicker 手动推进的 Ticker
type fakeTicker struct {
	interval time.Duration
	ch       chan time.Time
	stopped  int32
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() { atomic.StoreInt32(&t.stopped, 1) }

func (t *fakeTicker) isStopped() bool { return atomic.LoadInt32(&t.stopped) == 1 }

type fakeClock struct {
	mu      sync.Mutex
	tickers []*fakeTicker
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{interval: d, ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *fakeClock) latest() *fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

func (c *fakeClock) all() []*fakeTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fakeTicker(nil), c.tickers...)
}

// recordingPresenter 记录所有输出
type recordingPresenter struct {
	mu       sync.Mutex
	records  []models.TelemetryRecord
	statuses []models.ConnectionStatus
}

func (p *recordingPresenter) Render(r models.TelemetryRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, r)
}

func (p *recordingPresenter) RenderStatus(s models.ConnectionStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, s)
}

func (p *recordingPresenter) Records() []models.TelemetryRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.TelemetryRecord(nil), p.records...)
}

func (p *recordingPresenter) Statuses() []models.ConnectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ConnectionStatus(nil), p.statuses...)
}

// fetchResult 一次拉取的脚本化结果
type fetchResult struct {
	record models.TelemetryRecord
	err    error
	// gate 非空时阻塞直到关闭（模拟在途请求，且不响应 ctx 取消）
	gate chan struct{}
}

// scriptedFetcher 按顺序返回结果，用完后重复最后一个
type scriptedFetcher struct {
	mu        sync.Mutex
	script    []fetchResult
	calls     int
	endpoints []string
}

func (f *scriptedFetcher) Fetch(ctx context.Context, endpoint string) (models.TelemetryRecord, error) {
	f.mu.Lock()
	idx := f.calls
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}
	res := f.script[idx]
	f.calls++
	f.endpoints = append(f.endpoints, endpoint)
	f.mu.Unlock()

	if res.gate != nil {
		<-res.gate
	}
	return res.record, res.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// harness 组装复用器与各 fake
type harness struct {
	t         *testing.T
	m         *Multiplexer
	clock     *fakeClock
	presenter *recordingPresenter
	fetcher   *scriptedFetcher
	gen       *simulator.Generator
	done      chan struct{}
}

func newHarness(t *testing.T, script ...fetchResult) *harness {
	t.Helper()
	if len(script) == 0 {
		script = []fetchResult{{record: models.TelemetryRecord{EAR: 0.3, State: models.StateAlert}}}
	}

	h := &harness{
		t:         t,
		clock:     &fakeClock{},
		presenter: &recordingPresenter{},
		fetcher:   &scriptedFetcher{script: script},
		gen:       simulator.NewSeededGenerator(2024),
		done:      make(chan struct{}),
	}
	h.m = NewMultiplexer(Options{
		Generator: h.gen,
		Fetcher:   h.fetcher,
		Presenter: h.presenter,
		Clock:     h.clock,
		Logger:    zap.NewNop(),
	})
	h.m.afterTick = func() { h.done <- struct{}{} }
	t.Cleanup(h.m.Close)
	return h
}

// send 向当前生产者投递一个 tick，不等待处理完成
func (h *harness) send() {
	h.t.Helper()
	tk := h.clock.latest()
	require.NotNil(h.t, tk, "no ticker created")
	select {
	case tk.ch <- time.Now():
	case <-time.After(2 * time.Second):
		h.t.Fatal("tick was not consumed")
	}
}

func (h *harness) waitTick() {
	h.t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		h.t.Fatal("tick was not processed")
	}
}

// tick 投递 n 个 tick 并等待逐个处理完成
func (h *harness) tick(n int) {
	h.t.Helper()
	for i := 0; i < n; i++ {
		h.send()
		h.waitTick()
	}
}

// settle 等待被取消的生产者 goroutine 全部退出
func (h *harness) settle() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return h.m.runningProducers() == h.m.activeProducers()
	}, 2*time.Second, 5*time.Millisecond)
}
