package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the pipeline binaries. Each binary only
// reads the sections it needs.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Connector ConnectorConfig `mapstructure:"connector"`
	Consumer  ConsumerConfig  `mapstructure:"consumer"`
	Features  FeaturesConfig  `mapstructure:"features"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Bridge    BridgeConfig    `mapstructure:"bridge"`
	Sim       SimConfig       `mapstructure:"sim"`
}

type AppConfig struct {
	Env                string `mapstructure:"env"` // e.g., "local", "prod"
	MetricsIntervalSec int    `mapstructure:"metrics_interval_sec"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// KafkaConfig configures the alert egress bridge writer.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type ConnectorConfig struct {
	Exchanges         []string            `mapstructure:"exchanges"`
	Symbols           map[string][]string `mapstructure:"symbols"` // per exchange
	PingIntervalSec   int                 `mapstructure:"ping_interval_sec"`
	StaleThresholdSec float64             `mapstructure:"stale_threshold_sec"`
	StaleCheckSec     int                 `mapstructure:"stale_check_sec"`
	ReconnectBaseSec  float64             `mapstructure:"reconnect_base_sec"`
	ReconnectCapSec   float64             `mapstructure:"reconnect_cap_sec"`
	ReconnectJitter   float64             `mapstructure:"reconnect_jitter"`
	DedupCapacity     int                 `mapstructure:"dedup_capacity"`
	TopicMaxLen       int64               `mapstructure:"topic_max_len"`
}

// ConsumerConfig is shared by every group consumer. Name is the consumer
// identity inside the group; the runtime generates one when it is empty so
// that replicas never collide.
type ConsumerConfig struct {
	Name         string `mapstructure:"name"`
	BatchSize    int64  `mapstructure:"batch_size"`
	BlockMs      int    `mapstructure:"block_ms"`
	EmptySleepMs int    `mapstructure:"empty_sleep_ms"`
	Start        string `mapstructure:"start"` // "0" from beginning, "$" new entries only
}

type FeaturesConfig struct {
	Group           string  `mapstructure:"group"`
	BarIntervalSec  int     `mapstructure:"bar_interval_sec"`
	BufferCapacity  int     `mapstructure:"buffer_capacity"`
	IntervalSec     int     `mapstructure:"interval_sec"`
	GapThresholdSec float64 `mapstructure:"gap_threshold_sec"`
	CacheSize       int     `mapstructure:"cache_size"`
	TopicMaxLen     int64   `mapstructure:"topic_max_len"`
}

type DetectorConfig struct {
	Group               string  `mapstructure:"group"`
	MinTradeUSDT        float64 `mapstructure:"min_trade_usdt"`
	LargeTradeUSDT      float64 `mapstructure:"large_trade_usdt"`
	MegaTradeUSDT       float64 `mapstructure:"mega_trade_usdt"`
	AccumWindowSec      float64 `mapstructure:"accum_window_sec"`
	AccumThresholdUSDT  float64 `mapstructure:"accum_threshold_usdt"`
	MinTradesForPattern int     `mapstructure:"min_trades_for_pattern"`
	TopicMaxLen         int64   `mapstructure:"topic_max_len"`
	WebhookURL          string  `mapstructure:"webhook_url"` // empty disables the webhook channel
}

type BridgeConfig struct {
	Group string `mapstructure:"group"`
}

// SimConfig drives the synthetic feed generator used for local runs.
type SimConfig struct {
	Exchange      string             `mapstructure:"exchange"`
	Symbols       []string           `mapstructure:"symbols"`
	BasePrices    map[string]float64 `mapstructure:"base_prices"`
	IntervalMs    int                `mapstructure:"interval_ms"`
	WhaleOdds     float64            `mapstructure:"whale_odds"`
	WhaleNotional float64            `mapstructure:"whale_notional"`
	TopicMaxLen   int64              `mapstructure:"topic_max_len"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Load .env file into System Environment (if it exists)
	// This ensures variables like REDIS_ADDR are available as real env vars
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	// 2. Set Defaults (12-Factor App: Dev/Prod Parity)
	v.SetDefault("app.env", "local")
	v.SetDefault("app.metrics_interval_sec", 60)

	v.SetDefault("logger.level", "info")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "feed_alerts")

	v.SetDefault("connector.exchanges", []string{"binance", "bybit", "kraken"})
	v.SetDefault("connector.symbols", map[string][]string{
		"binance": {"BTCUSDT", "ETHUSDT", "SOLUSDT"},
		"bybit":   {"BTCUSDT", "ETHUSDT"},
		"kraken":  {"BTCUSDT", "ETHUSDT"},
	})
	v.SetDefault("connector.ping_interval_sec", 20)
	v.SetDefault("connector.stale_threshold_sec", 60.0)
	v.SetDefault("connector.stale_check_sec", 5)
	v.SetDefault("connector.reconnect_base_sec", 1.0)
	v.SetDefault("connector.reconnect_cap_sec", 60.0)
	v.SetDefault("connector.reconnect_jitter", 0.2)
	v.SetDefault("connector.dedup_capacity", 10000)
	v.SetDefault("connector.topic_max_len", 10000)

	v.SetDefault("consumer.name", "")
	v.SetDefault("consumer.batch_size", 10)
	v.SetDefault("consumer.block_ms", 2000)
	v.SetDefault("consumer.empty_sleep_ms", 500)
	v.SetDefault("consumer.start", "$")

	v.SetDefault("features.group", "feature-engine")
	v.SetDefault("features.bar_interval_sec", 60)
	v.SetDefault("features.buffer_capacity", 1440)
	v.SetDefault("features.interval_sec", 60)
	v.SetDefault("features.gap_threshold_sec", 300.0)
	v.SetDefault("features.cache_size", 100)
	v.SetDefault("features.topic_max_len", 1000)

	v.SetDefault("detector.group", "whale-detector")
	v.SetDefault("detector.min_trade_usdt", 100000.0)
	v.SetDefault("detector.large_trade_usdt", 500000.0)
	v.SetDefault("detector.mega_trade_usdt", 1000000.0)
	v.SetDefault("detector.accum_window_sec", 300.0)
	v.SetDefault("detector.accum_threshold_usdt", 200000.0)
	v.SetDefault("detector.min_trades_for_pattern", 3)
	v.SetDefault("detector.topic_max_len", 5000)
	v.SetDefault("detector.webhook_url", "")

	v.SetDefault("bridge.group", "alert-bridge")

	v.SetDefault("sim.exchange", "sim")
	v.SetDefault("sim.symbols", []string{"BTCUSDT", "ETHUSDT"})
	v.SetDefault("sim.base_prices", map[string]float64{
		"BTCUSDT": 50000,
		"ETHUSDT": 3000,
	})
	v.SetDefault("sim.interval_ms", 100)
	v.SetDefault("sim.whale_odds", 0.01)
	v.SetDefault("sim.whale_notional", 1200000.0)
	v.SetDefault("sim.topic_max_len", 10000)

	// 3. Configure Viper to read Environment Variables
	// This maps dot-notation to underscores (e.g., "redis.addr" -> "REDIS_ADDR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Explicitly Bind Env Vars to Keys
	// This is crucial for Viper to map flat Env Vars (REDIS_ADDR) to nested structs (Redis.Addr)
	bindEnv(v, "app.env", "app.metrics_interval_sec")
	bindEnv(v, "logger.level")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.brokers", "kafka.topic")
	bindEnv(v, "connector.exchanges",
		"connector.ping_interval_sec", "connector.stale_threshold_sec",
		"connector.stale_check_sec", "connector.reconnect_base_sec",
		"connector.reconnect_cap_sec", "connector.reconnect_jitter",
		"connector.dedup_capacity", "connector.topic_max_len")
	bindEnv(v, "consumer.name", "consumer.batch_size", "consumer.block_ms",
		"consumer.empty_sleep_ms", "consumer.start")
	bindEnv(v, "features.group", "features.bar_interval_sec",
		"features.buffer_capacity", "features.interval_sec",
		"features.gap_threshold_sec", "features.cache_size",
		"features.topic_max_len")
	bindEnv(v, "detector.group", "detector.min_trade_usdt",
		"detector.large_trade_usdt", "detector.mega_trade_usdt",
		"detector.accum_window_sec", "detector.accum_threshold_usdt",
		"detector.min_trades_for_pattern", "detector.topic_max_len",
		"detector.webhook_url")
	bindEnv(v, "bridge.group")
	bindEnv(v, "sim.exchange", "sim.symbols", "sim.interval_ms",
		"sim.whale_odds", "sim.whale_notional", "sim.topic_max_len")

	// 5. Unmarshal into Struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	// 6. Basic Validation
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr cannot be empty")
	}
	if cfg.Consumer.Start != "0" && cfg.Consumer.Start != "$" {
		return nil, fmt.Errorf("consumer start must be \"0\" or \"$\", got %q", cfg.Consumer.Start)
	}

	return &cfg, nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
