package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Solana struct {
		RPCURL        string        `yaml:"rpc_url"`
		WebSocketURL  string        `yaml:"websocket_url"`
		Commitment    string        `yaml:"commitment"`
		WalletAddress string        `yaml:"wallet_address"`
		WalletKey     string        `yaml:"wallet_private_key"`
		WatchPrograms []string      `yaml:"watch_programs"`
		PollInterval  time.Duration `yaml:"poll_interval"`
		PollLimit     int           `yaml:"poll_limit"`
		SourceRetry   time.Duration `yaml:"source_retry_delay"`
		PingInterval  time.Duration `yaml:"ping_interval"`
		RPCRateLimit  float64       `yaml:"rpc_rate_limit"`
	} `yaml:"solana"`
	Whale struct {
		MinimumBalance     uint64   `yaml:"minimum_balance"`
		MinimumTransaction uint64   `yaml:"minimum_transaction"`
		TrackedAddresses   []string `yaml:"tracked_addresses"`
		MinTradeAmount     uint64   `yaml:"min_trade_amount"`
		DedupeCapacity     int      `yaml:"dedupe_capacity"`
		HistoryCapacity    int      `yaml:"history_capacity"`
	} `yaml:"whale"`
	Strategy struct {
		TotalPortfolio      float64 `yaml:"total_portfolio"`
		MinOperatingBalance float64 `yaml:"min_operating_balance"`
		MaxSlippage         float64 `yaml:"max_slippage"`
		MaxPriceImpact      float64 `yaml:"max_price_impact"`
		StopLossPct         float64 `yaml:"stop_loss_pct"`
		TakeProfitPct       float64 `yaml:"take_profit_pct"`
		MinTradeSize        float64 `yaml:"min_trade_size"`
		Risk                struct {
			MaxPositionSize     float64 `yaml:"max_position_size"`
			MaxLossPerTrade     float64 `yaml:"max_loss_per_trade"`
			MaxTotalRisk        float64 `yaml:"max_total_risk"`
			MinConfidence       float64 `yaml:"min_confidence"`
			MaxConcurrentTrades int     `yaml:"max_concurrent_trades"`
		} `yaml:"risk"`
	} `yaml:"strategy"`
	HotPairs struct {
		MinVolume  float64       `yaml:"min_volume"`
		MaxVolume  float64       `yaml:"max_volume"`
		TimeWindow time.Duration `yaml:"time_window"`
		MinCount   int           `yaml:"min_count"`
	} `yaml:"hot_pairs"`
	Executor struct {
		SlippageToleranceBps int `yaml:"slippage_tolerance_bps"`
		QueueSize            int `yaml:"queue_size"`
		Workers              int `yaml:"workers"`
	} `yaml:"executor"`
	Retry struct {
		MaxAttempts   int           `yaml:"max_attempts"`
		InitialDelay  time.Duration `yaml:"initial_delay"`
		MaxDelay      time.Duration `yaml:"max_delay"`
		BackoffFactor float64       `yaml:"backoff_factor"`
	} `yaml:"retry"`
	Venues struct {
		Jupiter struct {
			BaseURL string        `yaml:"base_url"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"jupiter"`
		Raydium struct {
			BaseURL string        `yaml:"base_url"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"raydium"`
	} `yaml:"venues"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic"`
		OrdersTopic  string   `yaml:"orders_topic"`
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
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
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
	Cache struct {
		MemoryMaxSize int `yaml:"memory_max_size"`
		Redis         struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
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

	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		c.Solana.RPCURL = v
	}
	if v := os.Getenv("SOLANA_WS_URL"); v != "" {
		c.Solana.WebSocketURL = v
	}
	if v := os.Getenv("WALLET_ADDRESS"); v != "" {
		c.Solana.WalletAddress = v
	}
	if v := os.Getenv("WALLET_PRIVATE_KEY"); v != "" {
		c.Solana.WalletKey = v
	}
	if v := os.Getenv("TRACKED_WHALES"); v != "" {
		c.Whale.TrackedAddresses = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid. A bad configuration is the
// only fatal condition at process start.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("solana.rpc_url is required")
	}
	if len(c.Solana.WatchPrograms) == 0 {
		return fmt.Errorf("solana.watch_programs cannot be empty")
	}
	if c.Whale.MinimumTransaction == 0 {
		return fmt.Errorf("whale.minimum_transaction must be positive")
	}
	r := c.Strategy.Risk
	if r.MaxPositionSize <= 0 || r.MaxLossPerTrade <= 0 || r.MaxTotalRisk <= 0 {
		return fmt.Errorf("strategy.risk limits must be positive")
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("strategy.risk.min_confidence must be within [0,1]")
	}
	if r.MaxConcurrentTrades <= 0 {
		return fmt.Errorf("strategy.risk.max_concurrent_trades must be positive")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("retry.backoff_factor must be at least 1")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && (c.Kafka.SignalsTopic == "" || c.Kafka.OrdersTopic == "") {
		return fmt.Errorf("kafka.signals_topic and kafka.orders_topic are required when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}

// WebSocketURL derives a websocket endpoint from the RPC URL when none is
// configured explicitly.
func (c *Config) WebSocketURL() string {
	if c.Solana.WebSocketURL != "" {
		return c.Solana.WebSocketURL
	}
	u := c.Solana.RPCURL
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return u
}
