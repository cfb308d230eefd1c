package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/cmd/features/internal/features"
	"github.com/elyx5534/sofia-feed/pkg/config"
	"github.com/elyx5534/sofia-feed/pkg/consumer"
	"github.com/elyx5534/sofia-feed/pkg/metrics"
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

	// 4. Build the Feature Engine and its consumer runtime
	featCfg := cfg.Features
	engine := features.NewEngine(features.Config{
		BarInterval:     time.Duration(featCfg.BarIntervalSec) * time.Second,
		BufferCapacity:  featCfg.BufferCapacity,
		ComputeInterval: time.Duration(featCfg.IntervalSec) * time.Second,
		GapThreshold:    time.Duration(featCfg.GapThresholdSec * float64(time.Second)),
		CacheSize:       featCfg.CacheSize,
		TopicMaxLen:     featCfg.TopicMaxLen,
	}, client, logger, reg, nil)

	rt := consumer.NewRuntime(consumer.Options{
		Group:      featCfg.Group,
		Consumer:   cfg.Consumer.Name,
		Prefix:     stream.TickTopicPrefix,
		Start:      cfg.Consumer.Start,
		BatchSize:  cfg.Consumer.BatchSize,
		Block:      time.Duration(cfg.Consumer.BlockMs) * time.Millisecond,
		EmptySleep: time.Duration(cfg.Consumer.EmptySleepMs) * time.Millisecond,
	}, client, engine, logger, reg)

	// 5. Setup Shutdown Hook
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 6. Run the consumer loop and the compute scheduler
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rt.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		engine.RunScheduler(ctx)
	}()

	go reg.LogLoop(ctx, time.Duration(cfg.App.MetricsIntervalSec)*time.Second, logger)

	// 7. Wait for Shutdown Signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping feature engine...")
	cancel()

	wg.Wait()
	logger.Info("Feature engine exited cleanly")
}
