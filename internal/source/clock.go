package source

import "time"

// Ticker 周期触发器抽象
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock 创建 Ticker（测试中替换为可手动推进的实现）
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type realClock struct{}

// RealClock 基于 time.Ticker 的实现
func RealClock() Clock { return realClock{} }

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }

func (r *realTicker) Stop() { r.t.Stop() }
