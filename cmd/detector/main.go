package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/cmd/detector/internal/detector"
	"github.com/elyx5534/sofia-feed/pkg/config"
	"github.com/elyx5534/sofia-feed/pkg/consumer"
	"github.com/elyx5534/sofia-feed/pkg/metrics"
	"github.com/elyx5534/sofia-feed/pkg/models"
	"github.com/elyx5534/sofia-feed/pkg/stream"
)

var logger *zap.Logger

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize Zap Logger
	logger, err = config.NewLogger(cfg.Logger)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	// 3. Connect to the Stream Substrate
	client := stream.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := client.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer client.Close()

	reg := metrics.NewRegistry()

	// 4. Build the Detector with its severity fan-out
	detCfg := cfg.Detector
	routes := detector.DefaultRoutes(logger)
	if detCfg.WebhookURL != "" {
		// A real webhook replaces the log-backed channel at the same tier.
		routes[0] = detector.Route{
			Notifier: detector.NewWebhookNotifier(detCfg.WebhookURL),
			Min:      models.SeverityMedium,
		}
	}
	router := detector.NewRouter(logger, reg, routes...)

	det := detector.New(detector.Config{
		MinTradeUSDT:        detCfg.MinTradeUSDT,
		LargeTradeUSDT:      detCfg.LargeTradeUSDT,
		MegaTradeUSDT:       detCfg.MegaTradeUSDT,
		AccumWindowSec:      detCfg.AccumWindowSec,
		AccumThresholdUSDT:  detCfg.AccumThresholdUSDT,
		MinTradesForPattern: detCfg.MinTradesForPattern,
		TopicMaxLen:         detCfg.TopicMaxLen,
	}, client, router, logger, reg, nil)

	rt := consumer.NewRuntime(consumer.Options{
		Group:      detCfg.Group,
		Consumer:   cfg.Consumer.Name,
		Prefix:     stream.TickTopicPrefix,
		Start:      cfg.Consumer.Start,
		BatchSize:  cfg.Consumer.BatchSize,
		Block:      time.Duration(cfg.Consumer.BlockMs) * time.Millisecond,
		EmptySleep: time.Duration(cfg.Consumer.EmptySleepMs) * time.Millisecond,
	}, client, det, logger, reg)

	// 5. Setup Shutdown Hook
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 6. Run the consumer loop
	done := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(done)
	}()

	go reg.LogLoop(ctx, time.Duration(cfg.App.MetricsIntervalSec)*time.Second, logger)

	// 7. Wait for Shutdown Signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping detector...")
	cancel()

	<-done
	logger.Info("Detector exited cleanly")
}
