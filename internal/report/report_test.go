package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suvro-04/Driving-alert-system/internal/metrics"
	"github.com/suvro-04/Driving-alert-system/internal/models"
	"github.com/suvro-04/Driving-alert-system/internal/presenter"
	"github.com/xuri/excelize/v2"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func record(s *Session, rec models.TelemetryRecord) {
	_ = s.Handle(context.Background(), presenter.Event{Kind: presenter.EventTelemetry, Record: &rec, At: t0})
}

func status(s *Session, st models.ConnectionStatus, at time.Time) {
	_ = s.Handle(context.Background(), presenter.Event{Kind: presenter.EventStatus, Status: &st, At: at})
}

func TestSession_CountsRecords(t *testing.T) {
	s := NewSession(0)

	record(s, models.TelemetryRecord{EAR: 0.31, HeadTilt: 2, State: models.StateAlert})
	record(s, models.TelemetryRecord{EAR: 0.18, HeadTilt: 16, State: models.StateDrowsy, Yawning: true, YawnCount: 2, BuzzerActive: true})
	record(s, models.TelemetryRecord{EAR: 0.19, HeadTilt: -12, State: models.StateDrowsy, Yawning: true, YawnCount: 3, BuzzerActive: true})
	record(s, models.TelemetryRecord{EAR: 0.22, State: models.StateAlert})
	record(s, models.TelemetryRecord{State: models.StateDrowsy, Yawning: true})

	sum := s.Summary()
	assert.Equal(t, 5, sum.Records)
	assert.Equal(t, 2, sum.AlertTicks)
	assert.Equal(t, 3, sum.DrowsyTicks)
	assert.Equal(t, 2, sum.DrowsyEpisodes)
	assert.Equal(t, 2, sum.BuzzerTicks)
	assert.Equal(t, 2, sum.YawnEvents)
	assert.Equal(t, 3, sum.MaxYawnCount)

	assert.Equal(t, 1, sum.EARLevels[metrics.LevelNormal])
	assert.Equal(t, 1, sum.EARLevels[metrics.LevelWarning])
	assert.Equal(t, 2, sum.EARLevels[metrics.LevelDanger])
	assert.Equal(t, 3, sum.HeadTiltLevels[metrics.LevelNormal])
	assert.Equal(t, 1, sum.HeadTiltLevels[metrics.LevelWarning])
	assert.Equal(t, 1, sum.HeadTiltLevels[metrics.LevelDanger])
	assert.Equal(t, t0, sum.UpdatedAt)
}

func TestSession_TransitionsAreBounded(t *testing.T) {
	s := NewSession(2)

	status(s, models.ConnectingStatus(), t0)
	status(s, models.DisconnectedStatus(), t0.Add(time.Second))
	status(s, models.SimulatedStatus(), t0.Add(2*time.Second))

	sum := s.Summary()
	assert.Equal(t, 1, sum.Fallbacks)
	assert.Equal(t, 1, sum.TransitionsDropped)
	require.Len(t, sum.Transitions, 2)
	assert.Equal(t, models.StatusError, sum.Transitions[0].Kind)
	assert.Equal(t, models.MsgSimulationMode, sum.Transitions[1].Message)
}

func TestSession_SummaryIsACopy(t *testing.T) {
	s := NewSession(0)
	record(s, models.TelemetryRecord{EAR: 0.3})
	status(s, models.SimulatedStatus(), t0)

	sum := s.Summary()
	sum.EARLevels[metrics.LevelNormal] = 99
	sum.Transitions[0].Message = "changed"

	again := s.Summary()
	assert.Equal(t, 1, again.EARLevels[metrics.LevelNormal])
	assert.Equal(t, models.MsgSimulationMode, again.Transitions[0].Message)
}

func TestExportXLSX(t *testing.T) {
	s := NewSession(0)
	record(s, models.TelemetryRecord{EAR: 0.18, State: models.StateDrowsy})
	status(s, models.ConnectingStatus(), t0)
	status(s, models.DisconnectedStatus(), t0.Add(time.Second))

	data, err := ExportXLSX(s.Summary())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, TransitionsSheet}, f.GetSheetList())

	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, rows[0])
	assert.Equal(t, []string{"Records", "1"}, rows[3])
	assert.Equal(t, []string{"Backend Fallbacks", "1"}, rows[10])

	rows, err = f.GetRows(TransitionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, TransitionsHeader, rows[0])
	assert.Equal(t, []string{"2025-03-01 08:00:00", "connected", models.MsgConnecting}, rows[1])
	assert.Equal(t, []string{"2025-03-01 08:00:01", "error", models.MsgBackendDisconnected}, rows[2])
}
