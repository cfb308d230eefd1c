package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/elyx5534/sofia-feed/cmd/feedsim/internal/feedsim"
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

	// 4. Build the Simulator
	simCfg := cfg.Sim
	sim := feedsim.New(feedsim.Config{
		Exchange:      simCfg.Exchange,
		Symbols:       simCfg.Symbols,
		BasePrices:    simCfg.BasePrices,
		Interval:      time.Duration(simCfg.IntervalMs) * time.Millisecond,
		WhaleOdds:     simCfg.WhaleOdds,
		WhaleNotional: simCfg.WhaleNotional,
		TopicMaxLen:   simCfg.TopicMaxLen,
	}, client, logger, reg,
		feedsim.RealRand{Rand: rand.New(rand.NewSource(time.Now().UnixNano()))},
		feedsim.RealClock{})

	// 5. Setup Shutdown Hook
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 6. Run the generation loop
	done := make(chan struct{})
	go func() {
		sim.Run(ctx)
		close(done)
	}()

	go reg.LogLoop(ctx, time.Duration(cfg.App.MetricsIntervalSec)*time.Second, logger)

	// 7. Wait for Shutdown Signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping simulator...")
	cancel()

	<-done
	logger.Info("Simulator exited cleanly")
}
