package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Log         LogConfig         `yaml:"log"`
	Storage     StorageConfig     `yaml:"storage"`
	Redis       RedisConfig       `yaml:"redis"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Trading     TradingConfig     `yaml:"trading"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Model       ModelConfig       `yaml:"model"`
	Market      MarketConfig      `yaml:"market"`
	Sentiment   SentimentConfig   `yaml:"sentiment"`
	Wallet      WalletConfig      `yaml:"wallet"`
	Personality PersonalityConfig `yaml:"personality"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	RateLimit       float64       `yaml:"rate_limit" default:"20" validate:"gte=0"`
	RateBurst       int           `yaml:"rate_burst" default:"40" validate:"gte=0"`
	CORSOrigins     []string      `yaml:"cors_origins"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

// StorageConfig selects where strategy config, pattern memory and the
// calibration logs are persisted. Caps bound every append-only list.
type StorageConfig struct {
	Backend     string `yaml:"backend" default:"file" validate:"oneof=file redis sqlite"`
	Dir         string `yaml:"dir" default:"data"`
	SQLitePath  string `yaml:"sqlite_path" default:"data/signals.db"`
	HistoryCap  int    `yaml:"history_cap" default:"200" validate:"min=1"`
	PatternCap  int    `yaml:"pattern_cap" default:"500" validate:"min=1"`
	ReplayCap   int    `yaml:"replay_cap" default:"100" validate:"min=1"`
	MutationCap int    `yaml:"mutation_cap" default:"50" validate:"min=1"`
	CloneCap    int    `yaml:"clone_cap" default:"100" validate:"min=1"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size" default:"10"`
	Prefix   string `yaml:"prefix" default:"signals:"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	SignalsTopic   string   `yaml:"signals_topic" default:"trade-signals"`
	SnapshotsTopic string   `yaml:"snapshots_topic" default:"market-snapshots"`
	LogsTopic      string   `yaml:"logs_topic" default:"service-logs"`
	RequiredAcks   int      `yaml:"required_acks" default:"1"`
	Compression    string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	Producer       struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"signal-engine"`
		Workers    int           `yaml:"workers" default:"4" validate:"min=1"`
		BufferSize int           `yaml:"buffer_size" default:"256" validate:"min=1"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"signals"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	// WriteQueue routes archive writes through a Redis queue when Redis is
	// enabled.
	WriteQueue   bool `yaml:"write_queue" default:"true"`
	QueueWorkers int  `yaml:"queue_workers" default:"2" validate:"min=1"`
	QueueRetries int  `yaml:"queue_retries" default:"5" validate:"min=0"`
}

// TradingConfig drives the per-asset workers and the decision engine.
type TradingConfig struct {
	Symbols           []string      `yaml:"symbols" default:"[\"bitcoin\",\"ethereum\"]" validate:"min=1,dive,required"`
	MinVolume         float64       `yaml:"min_volume" default:"100000" validate:"gte=0"`
	Cooldown          time.Duration `yaml:"cooldown" default:"15m"`
	MinConfidence     float64       `yaml:"min_confidence" default:"0.6" validate:"gte=0,lte=1"`
	MinTradeAmount    float64       `yaml:"min_trade_amount" default:"5" validate:"gt=0"`
	MaxTradeAmount    float64       `yaml:"max_trade_amount" default:"100" validate:"gtefield=MinTradeAmount"`
	MinCashFloor      float64       `yaml:"min_cash_floor" default:"10" validate:"gte=0"`
	MinHoldingValue   float64       `yaml:"min_holding_value" default:"10" validate:"gte=0"`
	OverrideMinAmount float64       `yaml:"override_min_amount" default:"5" validate:"gt=0"`
	OverrideMaxAmount float64       `yaml:"override_max_amount" default:"25" validate:"gtefield=OverrideMinAmount"`
	WorkerMinDelay    time.Duration `yaml:"worker_min_delay" default:"2500ms"`
	WorkerMaxDelay    time.Duration `yaml:"worker_max_delay" default:"5500ms"`
}

type CalibrationConfig struct {
	Enabled           bool          `yaml:"enabled" default:"true"`
	ReplayInterval    time.Duration `yaml:"replay_interval" default:"10m"`
	MutationInterval  time.Duration `yaml:"mutation_interval" default:"30m"`
	CloneInterval     time.Duration `yaml:"clone_interval" default:"1h"`
	TrainInterval     time.Duration `yaml:"train_interval" default:"1h"`
	AccuracyThreshold float64       `yaml:"accuracy_threshold" default:"0.8" validate:"gte=0,lte=1"`
	StableAccuracy    float64       `yaml:"stable_accuracy" default:"0.9" validate:"gte=0,lte=1"`
	MutationStep      int           `yaml:"mutation_step" default:"2" validate:"min=0"`
	MismatchSample    int           `yaml:"mismatch_sample" default:"10" validate:"min=0"`
	ReplayCash        float64       `yaml:"replay_cash" default:"1000" validate:"gt=0"`
	CloneCount        int           `yaml:"clone_count" default:"5" validate:"min=1"`
	CloneJitter       int           `yaml:"clone_jitter" default:"5" validate:"min=0"`
	CloneTrials       int           `yaml:"clone_trials" default:"200" validate:"min=1"`
	CloneFee          float64       `yaml:"clone_fee" default:"0.1" validate:"gte=0"`
	CloneNoise        float64       `yaml:"clone_noise" default:"0.2" validate:"gte=0"`
	ApplyBestClone    bool          `yaml:"apply_best_clone" default:"true"`
}

type ModelConfig struct {
	Mode                string        `yaml:"mode" default:"logistic" validate:"oneof=logistic remote"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold" default:"0.65" validate:"gte=0,lte=1"`
	ServiceURL          string        `yaml:"service_url"`
	Timeout             time.Duration `yaml:"timeout" default:"5s"`
	MinTrainingRows     int           `yaml:"min_training_rows" default:"20" validate:"min=2"`
	MinAccuracy         float64       `yaml:"min_accuracy" default:"0.6" validate:"gte=0,lte=1"`
	Epochs              int           `yaml:"epochs" default:"500" validate:"min=1"`
	LearningRate        float64       `yaml:"learning_rate" default:"0.1" validate:"gt=0"`
}

type MarketConfig struct {
	Source            string        `yaml:"source" default:"http" validate:"oneof=http kafka"`
	BaseURL           string        `yaml:"base_url" default:"https://api.coingecko.com/api/v3"`
	VsCurrency        string        `yaml:"vs_currency" default:"usd"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"0.5" validate:"gt=0"`
	Burst             int           `yaml:"burst" default:"1" validate:"min=1"`
	Timeout           time.Duration `yaml:"timeout" default:"10s"`
	RSIPeriod         int           `yaml:"rsi_period" default:"14" validate:"min=2"`
	HistorySize       int           `yaml:"history_size" default:"100" validate:"min=2"`
	MaxSnapshotAge    time.Duration `yaml:"max_snapshot_age" default:"2m"`
}

type SentimentConfig struct {
	Enabled           bool          `yaml:"enabled" default:"true"`
	BaseURL           string        `yaml:"base_url" default:"https://www.reddit.com"`
	GlobalQuery       string        `yaml:"global_query" default:"cryptocurrency"`
	Limit             int           `yaml:"limit" default:"25" validate:"min=1,max=100"`
	CacheTTL          time.Duration `yaml:"cache_ttl" default:"10m"`
	Timeout           time.Duration `yaml:"timeout" default:"10s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" default:"0.5" validate:"gt=0"`
}

type WalletConfig struct {
	InitialUSD float64 `yaml:"initial_usd" default:"100" validate:"gte=0"`
}

// PersonalityConfig seeds the personality profile. When File is set the
// profile is read from it and reloaded on change.
type PersonalityConfig struct {
	File           string `yaml:"file"`
	ConfidenceTone string `yaml:"confidence_tone" default:"neutral"`
	RiskProfile    string `yaml:"risk_profile" default:"balanced" validate:"oneof=aggressive cautious balanced"`
	ResponseStyle  string `yaml:"response_style" default:"concise"`
}

// Default returns a configuration populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML configuration file on top of the defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes raw YAML on top of the defaults and validates the result.
func Parse(raw []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SIGNALS_SYMBOLS"); v != "" {
		c.Trading.Symbols = splitList(v)
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("MODEL_SERVICE_URL"); v != "" {
		c.Model.ServiceURL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

var validate = validator.New()

// Validate checks struct tags first, then the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Trading.WorkerMaxDelay < c.Trading.WorkerMinDelay {
		return errors.New("trading.worker_max_delay must not be below worker_min_delay")
	}
	if c.Storage.Backend == "redis" && !c.Redis.Enabled {
		return errors.New("storage.backend=redis requires redis.enabled")
	}
	if c.Market.Source == "kafka" && !c.Kafka.Enabled {
		return errors.New("market.source=kafka requires kafka.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Model.Mode == "remote" && c.Model.ServiceURL == "" {
		return errors.New("model.service_url is required for model.mode=remote")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
