package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/suvro-04/Driving-alert-system/internal/models"
	"github.com/suvro-04/Driving-alert-system/internal/presenter"
	"github.com/suvro-04/Driving-alert-system/internal/report"
	"github.com/suvro-04/Driving-alert-system/internal/source"
	"go.uber.org/zap"
)

// SourceController 数据源控制（由 source.Multiplexer 实现）
type SourceController interface {
	StartSimulation()
	ConnectToBackend(endpoint string) error
	Stop()
	Snapshot() source.Snapshot
}

// Snapshots 最新遥测快照读取（由 presenter.SnapshotReader 实现）
type Snapshots interface {
	LatestTelemetryJSON(ctx context.Context) (string, error)
	LatestView(ctx context.Context) (*presenter.View, error)
	LatestStatus(ctx context.Context) (*models.ConnectionStatus, error)
}

// EventStream SSE 订阅（由 presenter.Hub 实现）
type EventStream interface {
	Subscribe(w http.ResponseWriter, r *http.Request) error
}

// SessionReport 会话统计（由 report.Session 实现）
type SessionReport interface {
	Summary() report.Summary
}

// DashboardHandler 仪表盘 API
type DashboardHandler struct {
	source    SourceController
	snapshots Snapshots
	stream    EventStream
	session   SessionReport
	logger    *zap.Logger
	now       func() time.Time
}

func NewDashboardHandler(src SourceController, snapshots Snapshots, stream EventStream, session SessionReport, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		source:    src,
		snapshots: snapshots,
		stream:    stream,
		session:   session,
		logger:    logger,
		now:       time.Now,
	}
}

type connectRequest struct {
	Endpoint string `json:"endpoint"`
}

type latestTelemetry struct {
	View   *presenter.View          `json:"view"`
	Status *models.ConnectionStatus `json:"status"`
}

// Metrics GET /api/metrics：最新遥测原始 JSON（与检测后端同构，可被另一个仪表盘轮询）
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	raw, err := h.snapshots.LatestTelemetryJSON(r.Context())
	if err != nil {
		if errors.Is(err, presenter.ErrCacheMiss) {
			writeJSON(w, http.StatusNotFound, Fail("no telemetry available"))
			return
		}
		h.logger.Error("Failed to read latest telemetry", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to read telemetry"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(raw))
}

// LatestTelemetry GET /api/v1/telemetry/latest：最新渲染视图 + 连接状态
func (h *DashboardHandler) LatestTelemetry(w http.ResponseWriter, r *http.Request) {
	var out latestTelemetry

	view, err := h.snapshots.LatestView(r.Context())
	switch {
	case err == nil:
		out.View = view
	case !errors.Is(err, presenter.ErrCacheMiss):
		h.logger.Error("Failed to read latest view", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to read telemetry"))
		return
	}

	status, err := h.snapshots.LatestStatus(r.Context())
	switch {
	case err == nil:
		out.Status = status
	case !errors.Is(err, presenter.ErrCacheMiss):
		h.logger.Error("Failed to read latest status", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to read status"))
		return
	}

	writeJSON(w, http.StatusOK, Ok(out))
}

// GetSource GET /api/v1/source
func (h *DashboardHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.source.Snapshot()))
}

// StartSimulation POST /api/v1/source/simulate
func (h *DashboardHandler) StartSimulation(w http.ResponseWriter, r *http.Request) {
	h.source.StartSimulation()
	writeJSON(w, http.StatusOK, Ok(h.source.Snapshot()))
}

// Connect POST /api/v1/source/connect {"endpoint": "..."}
func (h *DashboardHandler) Connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	if err := h.source.ConnectToBackend(req.Endpoint); err != nil {
		switch {
		case errors.Is(err, source.ErrInvalidEndpoint):
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		case errors.Is(err, source.ErrClosed):
			writeJSON(w, http.StatusServiceUnavailable, Fail(err.Error()))
		default:
			h.logger.Error("Failed to connect to backend", zap.String("endpoint", req.Endpoint), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		}
		return
	}

	writeJSON(w, http.StatusOK, Ok(h.source.Snapshot()))
}

// StopSource POST /api/v1/source/stop
func (h *DashboardHandler) StopSource(w http.ResponseWriter, r *http.Request) {
	h.source.Stop()
	writeJSON(w, http.StatusOK, Ok(h.source.Snapshot()))
}

// Stream GET /api/v1/telemetry/stream (SSE)
func (h *DashboardHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if err := h.stream.Subscribe(w, r); err != nil {
		if errors.Is(err, presenter.ErrStreamingUnsupported) {
			writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
			return
		}
		h.logger.Debug("SSE stream closed", zap.Error(err))
	}
}

// SessionSummary GET /api/v1/report/session
func (h *DashboardHandler) SessionSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.session.Summary()))
}

// ExportSession GET /api/v1/report/session/export
func (h *DashboardHandler) ExportSession(w http.ResponseWriter, r *http.Request) {
	data, err := report.ExportXLSX(h.session.Summary())
	if err != nil {
		h.logger.Error("Failed to export session report", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export report"))
		return
	}

	filename := fmt.Sprintf("drowsy-session-%s.xlsx", h.now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Healthz GET /healthz
func (h *DashboardHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(map[string]string{
		"status": "ok",
		"mode":   h.source.Snapshot().Mode.String(),
	}))
}
