package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"oneof=development staging production"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/stream"`
		RestURL        string        `yaml:"rest_url" default:"https://api.binance.com"`
		Symbols        []string      `yaml:"symbols" validate:"min=1"`
		Timeframes     []string      `yaml:"timeframes" validate:"min=1"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
		BackfillLimit  int           `yaml:"backfill_limit" default:"200" validate:"min=30,max=1000"`
	} `yaml:"binance"`
	Telegram struct {
		BotToken      string        `yaml:"bot_token"`
		ChatID        string        `yaml:"chat_id"`
		DryRun        bool          `yaml:"dry_run"`
		SendTimeout   time.Duration `yaml:"send_timeout" default:"10s"`
		RatePerSecond float64       `yaml:"rate_per_second" default:"1"`
	} `yaml:"telegram"`
	Evaluation struct {
		Interval   time.Duration `yaml:"interval" default:"5s" validate:"min=1s"`
		Oscillator struct {
			Period       int     `yaml:"period" default:"14" validate:"min=2"`
			MildLow      float64 `yaml:"mild_low" default:"30"`
			ExtremeLow   float64 `yaml:"extreme_low" default:"20"`
			MildHigh     float64 `yaml:"mild_high" default:"70"`
			ExtremeHigh  float64 `yaml:"extreme_high" default:"80"`
			RecoveryLow  float64 `yaml:"recovery_low" default:"40"`
			RecoveryHigh float64 `yaml:"recovery_high" default:"60"`
		} `yaml:"oscillator"`
		Breakout struct {
			MarginPct float64 `yaml:"margin_pct" default:"0.1" validate:"min=0"`
		} `yaml:"breakout"`
		Divergence struct {
			Lookback   int     `yaml:"lookback" default:"50" validate:"min=5"`
			BullishMax float64 `yaml:"bullish_max" default:"40"`
			BearishMin float64 `yaml:"bearish_min" default:"60"`
		} `yaml:"divergence"`
	} `yaml:"evaluation"`
	Throttle struct {
		HourlyCap           int           `yaml:"hourly_cap" default:"20" validate:"min=1"`
		MinuteThreshold     int           `yaml:"minute_threshold" default:"5" validate:"min=1"`
		ConsolidationWindow time.Duration `yaml:"consolidation_window" default:"10s" validate:"min=1s"`
	} `yaml:"throttle"`
	Summary struct {
		Enabled         bool   `yaml:"enabled" default:"true"`
		AtUTC           string `yaml:"at_utc" default:"09:00"`
		FearGreedURL    string `yaml:"fear_greed_url" default:"https://pro-api.coinmarketcap.com/v3/fear-and-greed/latest"`
		FearGreedAPIKey string `yaml:"fear_greed_api_key"`
	} `yaml:"summary"`
	Retention struct {
		MaxAgeDays    int           `yaml:"max_age_days" default:"30" validate:"min=1"`
		MinKeep       int           `yaml:"min_keep" default:"200" validate:"min=0"`
		SweepInterval time.Duration `yaml:"sweep_interval" default:"24h"`
	} `yaml:"retention"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"marketpulse.alerts"`
		RequiredAcks int           `yaml:"required_acks" default:"1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"100ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host         string        `yaml:"host" default:"localhost"`
		Port         int           `yaml:"port" default:"9000"`
		Database     string        `yaml:"database" default:"marketpulse"`
		User         string        `yaml:"user" default:"default"`
		Password     string        `yaml:"password"`
		UseHTTP      bool          `yaml:"use_http"`
		AsyncInsert  bool          `yaml:"async_insert" default:"true"`
		WaitForAsync bool          `yaml:"wait_for_async_insert"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Queue struct {
		Workers    int `yaml:"workers" default:"2" validate:"min=1"`
		BufferSize int `yaml:"buffer_size" default:"256" validate:"min=1"`
		RetryMax   int `yaml:"retry_max" default:"3" validate:"min=0"`
	} `yaml:"queue"`
}

var validate = validator.New()

// Load reads a YAML configuration file, fills defaults and validates it.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables
// before validating.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("COINMARKETCAP_API_KEY"); v != "" {
		c.Summary.FearGreedAPIKey = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Validate checks tag rules plus the cross-field constraints the tags cannot
// express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	osc := c.Evaluation.Oscillator
	if osc.ExtremeLow >= osc.MildLow {
		return fmt.Errorf("oscillator thresholds: extreme_low (%v) must be below mild_low (%v)", osc.ExtremeLow, osc.MildLow)
	}
	if osc.MildHigh >= osc.ExtremeHigh {
		return fmt.Errorf("oscillator thresholds: mild_high (%v) must be below extreme_high (%v)", osc.MildHigh, osc.ExtremeHigh)
	}
	if osc.RecoveryLow < osc.MildLow || osc.RecoveryHigh > osc.MildHigh || osc.RecoveryLow >= osc.RecoveryHigh {
		return fmt.Errorf("oscillator recovery band [%v,%v] must sit inside [%v,%v]", osc.RecoveryLow, osc.RecoveryHigh, osc.MildLow, osc.MildHigh)
	}
	if c.Evaluation.Divergence.Lookback < c.Evaluation.Oscillator.Period+2 {
		return fmt.Errorf("divergence.lookback (%d) must cover at least period+2 candles", c.Evaluation.Divergence.Lookback)
	}
	if !c.Telegram.DryRun && (c.Telegram.BotToken == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id are required unless dry_run is set")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if _, err := ParseDailyTime(c.Summary.AtUTC); err != nil {
		return fmt.Errorf("summary.at_utc: %w", err)
	}
	return nil
}

// ParseDailyTime parses "HH:MM" into an offset from midnight UTC.
func ParseDailyTime(s string) (time.Duration, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}
