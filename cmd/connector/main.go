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

	"github.com/elyx5534/sofia-feed/cmd/connector/internal/connector"
	"github.com/elyx5534/sofia-feed/cmd/connector/internal/exchange"
	"github.com/elyx5534/sofia-feed/pkg/config"
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

	// 4. Build one Connector per configured exchange
	conCfg := cfg.Connector
	var connectors []*connector.Connector
	for _, name := range conCfg.Exchanges {
		adapter, err := exchange.New(name)
		if err != nil {
			// Unknown exchanges are skipped; the rest keep running.
			logger.Warn("Skipping exchange", zap.String("exchange", name), zap.Error(err))
			continue
		}

		symbols := conCfg.Symbols[name]
		if len(symbols) == 0 {
			logger.Warn("No symbols configured, skipping exchange", zap.String("exchange", name))
			continue
		}

		c := connector.New(connector.Config{
			Symbols:        symbols,
			PingInterval:   time.Duration(conCfg.PingIntervalSec) * time.Second,
			StaleThreshold: time.Duration(conCfg.StaleThresholdSec * float64(time.Second)),
			StaleCheck:     time.Duration(conCfg.StaleCheckSec) * time.Second,
			BackoffBase:    time.Duration(conCfg.ReconnectBaseSec * float64(time.Second)),
			BackoffCap:     time.Duration(conCfg.ReconnectCapSec * float64(time.Second)),
			JitterFactor:   conCfg.ReconnectJitter,
			DedupCapacity:  conCfg.DedupCapacity,
			TopicMaxLen:    conCfg.TopicMaxLen,
		}, adapter, exchange.GorillaDialer{}, client, logger, reg, nil, nil)
		connectors = append(connectors, c)
	}

	if len(connectors) == 0 {
		logger.Fatal("No usable exchanges configured")
	}

	// 5. Setup Shutdown Hook
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 6. Run all connectors, one goroutine apiece
	var wg sync.WaitGroup
	for _, c := range connectors {
		wg.Add(1)
		go func(c *connector.Connector) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}

	go reg.LogLoop(ctx, time.Duration(cfg.App.MetricsIntervalSec)*time.Second, logger)

	// 7. Wait for Shutdown Signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping connectors...")
	cancel()

	wg.Wait()
	logger.Info("Connector exited cleanly")
}
