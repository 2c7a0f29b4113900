package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	r.mux.ServeHTTP(w, req)
	r.logger.Debug("HTTP request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("elapsed", time.Since(start)),
	)
}

// RegisterDashboardRoutes 注册仪表盘路由
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.Handle("/api/metrics", method(http.MethodGet, h.Metrics))

	r.Handle("/api/v1/source", method(http.MethodGet, h.GetSource))
	r.Handle("/api/v1/source/simulate", method(http.MethodPost, h.StartSimulation))
	r.Handle("/api/v1/source/connect", method(http.MethodPost, h.Connect))
	r.Handle("/api/v1/source/stop", method(http.MethodPost, h.StopSource))

	r.Handle("/api/v1/telemetry/latest", method(http.MethodGet, h.LatestTelemetry))
	r.Handle("/api/v1/telemetry/stream", method(http.MethodGet, h.Stream))

	r.Handle("/api/v1/report/session", method(http.MethodGet, h.SessionSummary))
	r.Handle("/api/v1/report/session/export", method(http.MethodGet, h.ExportSession))

	r.Handle("/healthz", method(http.MethodGet, h.Healthz))
}

func method(m string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !allowMethod(w, req, m) {
			return
		}
		h(w, req)
	}
}
