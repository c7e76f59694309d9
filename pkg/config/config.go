package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"volatiq/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Model struct {
		// Backend selects where predictions come from: "local" loads the
		// persisted network artifact, "remote" delegates to an external
		// model service.
		Backend        string        `yaml:"backend"`
		ModelPath      string        `yaml:"model_path"`
		ScalerPath     string        `yaml:"scaler_path"`
		RemoteURL      string        `yaml:"remote_url"`
		RemoteTimeout  time.Duration `yaml:"remote_timeout"`
		Horizon        int           `yaml:"horizon"`
		MaxPredictRows int           `yaml:"max_predict_rows"`
		MaxExplainRows int           `yaml:"max_explain_rows"`
		ExplainSamples int           `yaml:"explain_samples"`
		ExplainTTL     time.Duration `yaml:"explain_cache_ttl"`
	} `yaml:"model"`
	RateLimit struct {
		Enabled       bool    `yaml:"enabled"`
		PredictPerSec float64 `yaml:"predict_per_sec"`
		ExplainPerSec float64 `yaml:"explain_per_sec"`
		Burst         float64 `yaml:"burst"`
	} `yaml:"rate_limit"`
	Cache struct {
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Ingest struct {
		Enabled        bool          `yaml:"enabled"`
		Backend        string        `yaml:"backend"` // kafka or clickhouse
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		MaxRPS         int           `yaml:"max_rps"`
		BufferSize     int           `yaml:"buffer_size"`
	} `yaml:"ingest"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MODEL_PATH"); v != "" {
		c.Model.ModelPath = v
	}
	if v := os.Getenv("SCALER_PATH"); v != "" {
		c.Model.ScalerPath = v
	}
	if v := os.Getenv("MODEL_REMOTE_URL"); v != "" {
		c.Model.RemoteURL = v
		c.Model.Backend = "remote"
	}
	if v := os.Getenv("MAX_PREDICTION_BATCH_SIZE"); v != "" {
		if n := util.ParseIntDefault(v, 0); n > 0 {
			c.Model.MaxPredictRows = n
		}
	}
	if v := os.Getenv("MARKETDATA_API_KEY"); v != "" {
		c.Ingest.APIKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Ingest.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Model.Backend == "" {
		c.Model.Backend = "local"
	}
	if c.Model.Horizon <= 0 {
		c.Model.Horizon = 5
	}
	if c.Model.MaxPredictRows <= 0 {
		c.Model.MaxPredictRows = 1000
	}
	if c.Model.MaxExplainRows <= 0 {
		c.Model.MaxExplainRows = 10
	}
	if c.Model.ExplainSamples <= 0 {
		c.Model.ExplainSamples = 100
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Model.Backend != "local" && c.Model.Backend != "remote" {
		return fmt.Errorf("model.backend must be 'local' or 'remote', got '%s'", c.Model.Backend)
	}
	if c.Model.Backend == "local" && (c.Model.ModelPath == "" || c.Model.ScalerPath == "") {
		return fmt.Errorf("model.model_path and model.scaler_path are required for the local backend")
	}
	if c.Model.Backend == "remote" && c.Model.RemoteURL == "" {
		return fmt.Errorf("model.remote_url is required for the remote backend")
	}
	if c.Model.Backend == "remote" && c.Model.ScalerPath == "" {
		return fmt.Errorf("model.scaler_path is required for the remote backend")
	}
	if c.Ingest.Enabled {
		if c.Ingest.Backend != "kafka" && c.Ingest.Backend != "clickhouse" {
			return fmt.Errorf("ingest.backend must be 'kafka' or 'clickhouse', got '%s'", c.Ingest.Backend)
		}
		if len(c.Ingest.Symbols) == 0 {
			return fmt.Errorf("ingest.symbols cannot be empty")
		}
		if c.Ingest.WebSocketURL == "" {
			return fmt.Errorf("ingest.websocket_url is required")
		}
	}
	return nil
}
