package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	mqttcommon "github.com/suvro-04/Driving-alert-system/common/mqtt"
	rediscommon "github.com/suvro-04/Driving-alert-system/common/redis"
	"github.com/suvro-04/Driving-alert-system/internal/alert"
	"github.com/suvro-04/Driving-alert-system/internal/backend"
	"github.com/suvro-04/Driving-alert-system/internal/config"
	httpapi "github.com/suvro-04/Driving-alert-system/internal/http"
	"github.com/suvro-04/Driving-alert-system/internal/presenter"
	"github.com/suvro-04/Driving-alert-system/internal/report"
	"github.com/suvro-04/Driving-alert-system/internal/simulator"
	"github.com/suvro-04/Driving-alert-system/internal/source"
	"go.uber.org/zap"
)

// DashboardService 驾驶员警觉度仪表盘服务
type DashboardService struct {
	config *config.Config
	logger *zap.Logger

	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	dispatcher  *presenter.Dispatcher
	hub         *presenter.Hub
	session     *report.Session
	multiplexer *source.Multiplexer
	router      *httpapi.Router
	server      *Server

	errCh chan error
}

// NewDashboardService 创建服务；Redis/MQTT 不可用时降级（内存快照 / 不下发告警）
func NewDashboardService(cfg *config.Config, logger *zap.Logger) (*DashboardService, error) {
	s := &DashboardService{
		config: cfg,
		logger: logger,
		errCh:  make(chan error, 1),
	}

	var kv presenter.KVStore = presenter.NewMemoryKVStore()
	if cfg.Redis.Enabled {
		client, err := rediscommon.Connect(context.Background(), &cfg.Redis.RedisConfig)
		if err == nil {
			s.redisClient = client
			kv = presenter.NewRedisKVStore(client)
			logger.Info("Redis enabled", zap.String("addr", cfg.Redis.Addr), zap.String("stream", cfg.Redis.Stream))
		} else {
			logger.Warn("Redis enabled but connection failed, falling back to memory snapshots", zap.Error(err))
		}
	}

	if cfg.MQTT.Enabled {
		client, err := mqttcommon.NewClient(&cfg.MQTT.MQTTConfig, logger)
		if err == nil {
			s.mqttClient = client
		} else {
			logger.Warn("MQTT enabled but connection failed, alert signals disabled", zap.Error(err))
		}
	}

	s.hub = presenter.NewHub(presenter.HubConfig{
		BufferSize:        cfg.Presenter.SSEBuffer,
		HeartbeatInterval: cfg.Presenter.SSEHeartbeat(),
	}, logger)
	s.session = report.NewSession(cfg.Presenter.ReportTransitions)

	sinks := []presenter.Sink{
		presenter.NewLogSink(logger),
		presenter.NewSnapshotSink(kv, cfg.Redis.SnapshotTTL(), logger),
		s.hub,
		s.session,
	}
	if s.redisClient != nil {
		sinks = append(sinks, presenter.NewStreamSink(s.redisClient, cfg.Redis.Stream, cfg.Redis.StreamMaxLen, logger))
	}
	if s.mqttClient != nil {
		sinks = append(sinks, alert.NewPublisher(s.mqttClient, cfg.Alert.Topic, cfg.MQTT.QoS, logger))
	}
	s.dispatcher = presenter.NewDispatcher(cfg.Presenter.QueueSize, logger, sinks...)

	var gen *simulator.Generator
	if cfg.Simulator.Seed != 0 {
		gen = simulator.NewSeededGenerator(cfg.Simulator.Seed)
	} else {
		gen = simulator.NewGenerator(nil)
	}

	s.multiplexer = source.NewMultiplexer(source.Options{
		Generator:    gen,
		Fetcher:      backend.NewClient(cfg.Source.Timeout(), logger),
		Presenter:    s.dispatcher,
		SimInterval:  cfg.Simulator.Interval(),
		PollInterval: cfg.Source.PollInterval(),
		Logger:       logger,
	})

	handler := httpapi.NewDashboardHandler(s.multiplexer, presenter.NewSnapshotReader(kv), s.hub, s.session, logger)
	s.router = httpapi.NewRouter(logger)
	s.router.RegisterDashboardRoutes(handler)
	s.server = NewServer(cfg.HTTP.Addr, s.router, logger)

	return s, nil
}

// Start 启动分发、SSE 心跳、自动选择的数据源与 HTTP 服务（非阻塞）
func (s *DashboardService) Start(ctx context.Context) error {
	s.logger.Info("Starting dashboard service components",
		zap.String("autostart", s.config.Source.Autostart),
		zap.Bool("redis", s.redisClient != nil),
		zap.Bool("mqtt", s.mqttClient != nil),
	)

	s.dispatcher.Start(ctx)
	s.hub.Start(ctx)

	switch s.config.Source.Autostart {
	case config.AutostartSimulate:
		s.multiplexer.StartSimulation()
	case config.AutostartBackend:
		if err := s.multiplexer.ConnectToBackend(s.config.Source.Endpoint); err != nil {
			return fmt.Errorf("failed to connect to backend: %w", err)
		}
	}

	go func() {
		if err := s.server.Start(); err != nil {
			s.errCh <- err
		}
	}()

	return nil
}

// Errors HTTP 服务异常退出时收到错误
func (s *DashboardService) Errors() <-chan error {
	return s.errCh
}

// Handler HTTP 路由
func (s *DashboardService) Handler() http.Handler {
	return s.router
}

// Multiplexer 数据源复用器
func (s *DashboardService) Multiplexer() *source.Multiplexer {
	return s.multiplexer
}

// Stop 按启动的逆序停止
func (s *DashboardService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping dashboard service")

	s.multiplexer.Close()
	// 先断开 SSE 连接，否则 Shutdown 会等待长连接
	s.hub.Stop()

	var firstErr error
	if err := s.server.Stop(ctx); err != nil {
		firstErr = fmt.Errorf("failed to stop http server: %w", err)
	}

	s.dispatcher.Close()

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close redis: %w", err)
		}
	}

	s.logger.Info("Dashboard service stopped")
	return firstErr
}
