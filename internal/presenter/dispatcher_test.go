package presenter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"go.uber.org/zap"
)

type recordingSink struct {
	name string
	err  error

	mu      sync.Mutex
	events  []Event
	ctxErrs []error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Handle(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcher_PreservesOrderAcrossKinds(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(16, zap.NewNop(), sink)
	d.Start(context.Background())

	d.RenderStatus(models.SimulatedStatus())
	d.Render(models.TelemetryRecord{EAR: 0.31})
	d.RenderStatus(models.DisconnectedStatus())
	d.Render(models.TelemetryRecord{EAR: 0.18})
	d.Close()

	events := sink.Events()
	require.Len(t, events, 4)
	assert.Equal(t, EventStatus, events[0].Kind)
	assert.Equal(t, models.SimulatedStatus(), *events[0].Status)
	assert.Equal(t, EventTelemetry, events[1].Kind)
	assert.Equal(t, 0.31, events[1].Record.EAR)
	assert.Equal(t, models.DisconnectedStatus(), *events[2].Status)
	assert.Equal(t, 0.18, events[3].Record.EAR)
	assert.False(t, events[0].At.IsZero())
}

func TestDispatcher_DrainsWithLiveContextAfterCancel(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(16, zap.NewNop(), sink)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()

	d.RenderStatus(models.DisconnectedStatus())
	d.Render(models.TelemetryRecord{EAR: 0.2})
	d.Close()

	require.Len(t, sink.Events(), 2)
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, err := range sink.ctxErrs {
		assert.NoError(t, err)
	}
}

func TestDispatcher_SinkErrorDoesNotStopOthers(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	ok := &recordingSink{name: "ok"}
	d := NewDispatcher(4, zap.NewNop(), failing, ok)
	d.Start(context.Background())

	d.Render(models.TelemetryRecord{EAR: 0.3})
	d.Render(models.TelemetryRecord{EAR: 0.29})
	d.Close()

	assert.Len(t, failing.Events(), 2)
	assert.Len(t, ok.Events(), 2)
}

func TestDispatcher_DropsTelemetryWhenFull(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	// 未启动，队列不会被消费
	d := NewDispatcher(2, zap.NewNop(), sink)

	d.Render(models.TelemetryRecord{EAR: 0.1})
	d.Render(models.TelemetryRecord{EAR: 0.2})
	d.Render(models.TelemetryRecord{EAR: 0.3})
	d.Render(models.TelemetryRecord{EAR: 0.4})

	assert.Equal(t, int64(2), d.Dropped())

	done := make(chan struct{})
	go func() {
		d.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on an unstarted dispatcher")
	}
	assert.Empty(t, sink.Events())
}

func TestDispatcher_StatusIsNeverDropped(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(1, zap.NewNop(), sink)

	d.Render(models.TelemetryRecord{EAR: 0.3})

	sent := make(chan struct{})
	go func() {
		d.RenderStatus(models.ConnectedStatus())
		close(sent)
	}()

	// 队列已满，状态需等待消费
	select {
	case <-sent:
		t.Fatal("status should wait for queue space")
	case <-time.After(50 * time.Millisecond):
	}

	d.Start(context.Background())
	select {
	case <-sent:
	case <-time.After(time.Second):
		t.Fatal("status was not enqueued")
	}
	d.Close()

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventStatus, events[1].Kind)
	assert.Equal(t, int64(0), d.Dropped())
}

func TestDispatcher_IgnoresAfterClose(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(4, zap.NewNop(), sink)
	d.Start(context.Background())
	d.Close()
	d.Close()

	d.Render(models.TelemetryRecord{EAR: 0.3})
	d.RenderStatus(models.ConnectedStatus())
	d.Start(context.Background())

	assert.Empty(t, sink.Events())
}
