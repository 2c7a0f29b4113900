package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	logpkg "github.com/suvro-04/Driving-alert-system/common/logger"
	"github.com/suvro-04/Driving-alert-system/internal/config"
	"github.com/suvro-04/Driving-alert-system/internal/service"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化Logger
	logger, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, "drowsy-dashboard")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting drowsy-dashboard service",
		zap.String("http_addr", cfg.HTTP.Addr),
		zap.String("autostart", cfg.Source.Autostart),
		zap.String("backend_endpoint", cfg.Source.Endpoint),
		zap.Duration("poll_interval", cfg.Source.PollInterval()),
		zap.Duration("sim_interval", cfg.Simulator.Interval()),
	)

	svc, err := service.NewDashboardService(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create dashboard service", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Fatal("Failed to start dashboard service", zap.Error(err))
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-svc.Errors():
		logger.Error("HTTP server failed", zap.Error(err))
	}

	// 优雅关闭：先排空分发队列，再取消根 context
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := svc.Stop(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	cancel()

	logger.Info("Service stopped")
}
