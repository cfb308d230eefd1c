package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/cmd/bridge/internal/bridge"
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

	// 4. Ensure the egress topic exists
	creator := bridge.NewTopicCreator(logger, &bridge.RealKafkaDialer{Dialer: kafka.DefaultDialer}, nil)
	creator.Create(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	// 5. Setup Kafka Writer. Writes stay synchronous: the handler must see
	// the error so failed alerts are redelivered instead of dropped.
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	b := bridge.New(writer, logger, reg)
	rt := consumer.NewRuntime(consumer.Options{
		Group:      cfg.Bridge.Group,
		Consumer:   cfg.Consumer.Name,
		Prefix:     stream.AlertTopicPrefix,
		Start:      cfg.Consumer.Start,
		BatchSize:  cfg.Consumer.BatchSize,
		Block:      time.Duration(cfg.Consumer.BlockMs) * time.Millisecond,
		EmptySleep: time.Duration(cfg.Consumer.EmptySleepMs) * time.Millisecond,
	}, client, b, logger, reg)

	// 6. Setup Shutdown Hook
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 7. Run the consumer loop
	done := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(done)
	}()

	go reg.LogLoop(ctx, time.Duration(cfg.App.MetricsIntervalSec)*time.Second, logger)

	// 8. Wait for Shutdown Signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping bridge...")
	cancel()
	<-done

	// 9. Flush Kafka Buffer (CRITICAL)
	if err := writer.Close(); err != nil {
		logger.Error("Error closing Kafka writer", zap.Error(err))
	} else {
		logger.Info("Kafka writer closed cleanly")
	}
}
