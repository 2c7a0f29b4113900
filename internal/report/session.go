package report

import (
	"context"
	"sync"
	"time"

	"github.com/suvro-04/Driving-alert-system/internal/metrics"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"github.com/suvro-04/Driving-alert-system/internal/presenter"
)

// DefaultMaxTransitions 保留的状态切换条数
const DefaultMaxTransitions = 200

// Transition 一次连接状态切换
type Transition struct {
	At      time.Time         `json:"at"`
	Kind    models.StatusKind `json:"kind"`
	Message string            `json:"message"`
}

// Summary 会话统计快照
type Summary struct {
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`

	Records        int `json:"records"`
	AlertTicks     int `json:"alert_ticks"`
	DrowsyTicks    int `json:"drowsy_ticks"`
	DrowsyEpisodes int `json:"drowsy_episodes"`
	BuzzerTicks    int `json:"buzzer_ticks"`
	YawnEvents     int `json:"yawn_events"`
	MaxYawnCount   int `json:"max_yawn_count"`

	EARLevels      map[metrics.Level]int `json:"ear_levels"`
	HeadTiltLevels map[metrics.Level]int `json:"head_tilt_levels"`

	Fallbacks          int          `json:"fallbacks"`
	Transitions        []Transition `json:"transitions"`
	TransitionsDropped int          `json:"transitions_dropped"`
}

// Session 聚合本次运行的遥测统计；只保留计数，不保留原始记录
type Session struct {
	mu  sync.Mutex
	now func() time.Time
	max int

	summary   Summary
	lastState models.DriverState
	yawning   bool
}

// NewSession 创建会话统计；maxTransitions <= 0 使用默认值
func NewSession(maxTransitions int) *Session {
	if maxTransitions <= 0 {
		maxTransitions = DefaultMaxTransitions
	}
	s := &Session{now: time.Now, max: maxTransitions}
	s.summary = Summary{
		StartedAt:      s.now(),
		EARLevels:      make(map[metrics.Level]int),
		HeadTiltLevels: make(map[metrics.Level]int),
	}
	return s
}

func (s *Session) Name() string { return "session-report" }

// Handle 实现 presenter.Sink
func (s *Session) Handle(ctx context.Context, ev presenter.Event) error {
	at := ev.At
	if at.IsZero() {
		at = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case presenter.EventTelemetry:
		s.addRecord(*ev.Record)
	case presenter.EventStatus:
		s.addStatus(*ev.Status, at)
	default:
		return nil
	}
	s.summary.UpdatedAt = at
	return nil
}

func (s *Session) addRecord(r models.TelemetryRecord) {
	sum := &s.summary
	sum.Records++

	if r.IsDrowsy() {
		sum.DrowsyTicks++
		if s.lastState != models.StateDrowsy {
			sum.DrowsyEpisodes++
		}
	} else {
		sum.AlertTicks++
	}
	s.lastState = r.State

	if r.BuzzerActive {
		sum.BuzzerTicks++
	}
	// 只统计上升沿
	if r.Yawning && !s.yawning {
		sum.YawnEvents++
	}
	s.yawning = r.Yawning
	if r.YawnCount > sum.MaxYawnCount {
		sum.MaxYawnCount = r.YawnCount
	}

	// EAR 缺失不计入分级
	if r.EAR != 0 {
		sum.EARLevels[metrics.ClassifyEAR(r.EAR)]++
	}
	sum.HeadTiltLevels[metrics.ClassifyHeadTilt(r.HeadTilt)]++
}

func (s *Session) addStatus(st models.ConnectionStatus, at time.Time) {
	sum := &s.summary
	if st.Kind == models.StatusError {
		sum.Fallbacks++
	}

	sum.Transitions = append(sum.Transitions, Transition{At: at, Kind: st.Kind, Message: st.Message})
	if over := len(sum.Transitions) - s.max; over > 0 {
		sum.Transitions = append([]Transition(nil), sum.Transitions[over:]...)
		sum.TransitionsDropped += over
	}
}

// Summary 返回统计快照（深拷贝）
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.summary
	out.EARLevels = copyLevels(s.summary.EARLevels)
	out.HeadTiltLevels = copyLevels(s.summary.HeadTiltLevels)
	out.Transitions = append([]Transition(nil), s.summary.Transitions...)
	return out
}

func copyLevels(in map[metrics.Level]int) map[metrics.Level]int {
	out := make(map[metrics.Level]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
