package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server struct {
		Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
	} `mapstructure:"server"`

	Database struct {
		Type       string `mapstructure:"type" validate:"oneof=postgres sqlite"`
		PostgreSQL struct {
			DSN         string `mapstructure:"dsn"`
			MaxConns    int    `mapstructure:"max_connections" validate:"min=1"`
			MaxIdle     int    `mapstructure:"max_idle" validate:"min=1"`
			MaxLifetime string `mapstructure:"max_lifetime"`
			MaxIdleTime string `mapstructure:"max_idle_time"`
			AutoMigrate bool   `mapstructure:"auto_migrate"`
		} `mapstructure:"postgresql"`
		SQLite struct {
			Path        string `mapstructure:"path"`
			AutoMigrate bool   `mapstructure:"auto_migrate"`
		} `mapstructure:"sqlite"`
	} `mapstructure:"database"`

	NATS NATSConfig `mapstructure:"nats"`

	Adapters struct {
		Bibliographic struct {
			Enabled   bool   `mapstructure:"enabled"`
			BaseURL   string `mapstructure:"base_url"`
			RateLimit string `mapstructure:"rate_limit"`
			Timeout   string `mapstructure:"timeout"`
		} `mapstructure:"bibliographic"`

		Citation struct {
			PrimaryBaseURL  string `mapstructure:"primary_base_url"`
			FallbackBaseURL string `mapstructure:"fallback_base_url"`
			Timeout         string `mapstructure:"timeout"`
		} `mapstructure:"citation"`

		Vocabulary struct {
			Enabled bool   `mapstructure:"enabled"`
			BaseURL string `mapstructure:"base_url"`
			Timeout string `mapstructure:"timeout"`
		} `mapstructure:"vocabulary"`

		Embedder struct {
			BaseURL   string `mapstructure:"base_url"`
			Timeout   string `mapstructure:"timeout"`
			Dimension int    `mapstructure:"dimension" validate:"min=1"`
		} `mapstructure:"embedder"`
	} `mapstructure:"adapters"`

	Pipeline struct {
		IngestConcurrency int     `mapstructure:"ingest_concurrency" validate:"min=1"`
		FetchTimeout      string  `mapstructure:"fetch_timeout"`
		RecencyTauYears   float64 `mapstructure:"recency_tau_years" validate:"gt=0"`
		ScoreWeights      struct {
			Novelty  float64 `mapstructure:"novelty"`
			Velocity float64 `mapstructure:"velocity"`
			Recency  float64 `mapstructure:"recency"`
		} `mapstructure:"score_weights"`
		ClusterMinSize   int   `mapstructure:"cluster_min_size" validate:"min=1"`
		ClusterRandomSeed int64 `mapstructure:"cluster_random_seed"`
		MaxResultsCap    int   `mapstructure:"max_results_cap" validate:"min=1"`
	} `mapstructure:"pipeline"`

	Logging struct {
		Level     string `mapstructure:"level" validate:"oneof=debug info warn error"`
		Format    string `mapstructure:"format" validate:"oneof=json text"`
		AddSource bool   `mapstructure:"add_source"`
		Output    string `mapstructure:"output" validate:"oneof=stdout stderr file"`
		FilePath  string `mapstructure:"file_path"`
	} `mapstructure:"logging"`

	Circuit struct {
		Enabled          bool   `mapstructure:"enabled"`
		FailureThreshold int    `mapstructure:"failure_threshold"`
		SuccessThreshold int    `mapstructure:"success_threshold"`
		Timeout          string `mapstructure:"timeout"`
		MaxRequests      int    `mapstructure:"max_requests"`
		SlidingWindow    string `mapstructure:"sliding_window"`
		MinRequestCount  int    `mapstructure:"min_request_count"`
	} `mapstructure:"circuit"`

	Retry struct {
		Enabled       bool    `mapstructure:"enabled"`
		MaxAttempts   int     `mapstructure:"max_attempts"`
		InitialDelay  string  `mapstructure:"initial_delay"`
		MaxDelay      string  `mapstructure:"max_delay"`
		BackoffFactor float64 `mapstructure:"backoff_factor"`
		Jitter        bool    `mapstructure:"jitter"`
	} `mapstructure:"retry"`

	Monitoring struct {
		Enabled     bool   `mapstructure:"enabled"`
		HealthPath  string `mapstructure:"health_path"`
		MetricsPath string `mapstructure:"metrics_path"`
	} `mapstructure:"monitoring"`
}

// TimeoutConfig contains parsed timeout durations.
type TimeoutConfig struct {
	Default     time.Duration
	Database    time.Duration
	ExternalAPI time.Duration
	Ingest      time.Duration
	HealthCheck time.Duration
}

// LoadConfig loads configuration from environment variables and config files.
func LoadConfig() (*Config, error) {
	return LoadConfigFromPath("configs/config.yaml")
}

// LoadConfigFromPath loads configuration from a specific path.
func LoadConfigFromPath(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("LITSCOPE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// GetTimeoutConfig returns parsed timeout configurations.
func (c *Config) GetTimeoutConfig() (*TimeoutConfig, error) {
	fetchTimeout, err := time.ParseDuration(c.Pipeline.FetchTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline fetch timeout: %w", err)
	}

	return &TimeoutConfig{
		Default:     30 * time.Second,
		Database:    5 * time.Second,
		ExternalAPI: fetchTimeout,
		Ingest:      fetchTimeout,
		HealthCheck: 5 * time.Second,
	}, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Mode == "debug"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "release"
}

// IsTest returns true if running in test mode.
func (c *Config) IsTest() bool {
	return c.Server.Mode == "test"
}

// GetDatabaseConnectionString returns the appropriate database connection string.
func (c *Config) GetDatabaseConnectionString() (string, error) {
	switch c.Database.Type {
	case "postgres":
		if c.Database.PostgreSQL.DSN == "" {
			return "", fmt.Errorf("PostgreSQL DSN is required when type is postgres")
		}
		return c.Database.PostgreSQL.DSN, nil
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return "", fmt.Errorf("SQLite path is required when type is sqlite")
		}
		return c.Database.SQLite.Path, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("server.mode", "debug")

	viper.SetDefault("database.type", "sqlite")
	viper.SetDefault("database.postgresql.max_connections", 25)
	viper.SetDefault("database.postgresql.max_idle", 10)
	viper.SetDefault("database.postgresql.max_lifetime", "1h")
	viper.SetDefault("database.postgresql.max_idle_time", "30m")
	viper.SetDefault("database.postgresql.auto_migrate", true)
	viper.SetDefault("database.sqlite.path", "./litscope.db")
	viper.SetDefault("database.sqlite.auto_migrate", true)

	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.cluster_id", "litscope-cluster")
	viper.SetDefault("nats.client_id", "litscope-pipeline")
	viper.SetDefault("nats.max_reconnects", 10)
	viper.SetDefault("nats.reconnect_wait", "2s")
	viper.SetDefault("nats.timeout", "5s")

	viper.SetDefault("nats.embedded.enabled", false)
	viper.SetDefault("nats.embedded.host", "0.0.0.0")
	viper.SetDefault("nats.embedded.port", 4222)
	viper.SetDefault("nats.embedded.log_level", "INFO")
	viper.SetDefault("nats.embedded.log_file", "")
	viper.SetDefault("nats.embedded.cluster.name", "litscope-cluster")
	viper.SetDefault("nats.embedded.cluster.host", "0.0.0.0")
	viper.SetDefault("nats.embedded.cluster.port", 6222)
	viper.SetDefault("nats.embedded.cluster.routes", []string{})
	viper.SetDefault("nats.embedded.monitor.host", "0.0.0.0")
	viper.SetDefault("nats.embedded.monitor.port", 8222)
	viper.SetDefault("nats.embedded.limits.max_connections", 1000)
	viper.SetDefault("nats.embedded.limits.max_payload", "1MB")
	viper.SetDefault("nats.embedded.limits.max_pending", "64MB")

	viper.SetDefault("nats.tls.enabled", false)

	viper.SetDefault("nats.jetstream.enabled", true)
	viper.SetDefault("nats.jetstream.domain", "")
	viper.SetDefault("nats.jetstream.store_dir", "./jetstream")
	viper.SetDefault("nats.jetstream.max_memory", "256MB")
	viper.SetDefault("nats.jetstream.max_storage", "1GB")
	viper.SetDefault("nats.jetstream.sync_interval", "2m")

	viper.SetDefault("adapters.bibliographic.enabled", true)
	viper.SetDefault("adapters.bibliographic.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	viper.SetDefault("adapters.bibliographic.rate_limit", "350ms")
	viper.SetDefault("adapters.bibliographic.timeout", "20s")

	viper.SetDefault("adapters.citation.primary_base_url", "https://api.crossref.org")
	viper.SetDefault("adapters.citation.fallback_base_url", "https://api.openalex.org")
	viper.SetDefault("adapters.citation.timeout", "15s")

	viper.SetDefault("adapters.vocabulary.enabled", true)
	viper.SetDefault("adapters.vocabulary.base_url", "https://id.nlm.nih.gov/mesh")
	viper.SetDefault("adapters.vocabulary.timeout", "10s")

	viper.SetDefault("adapters.embedder.base_url", "")
	viper.SetDefault("adapters.embedder.timeout", "10s")
	viper.SetDefault("adapters.embedder.dimension", 256)

	viper.SetDefault("pipeline.ingest_concurrency", 8)
	viper.SetDefault("pipeline.fetch_timeout", "20s")
	viper.SetDefault("pipeline.recency_tau_years", 5.0)
	viper.SetDefault("pipeline.score_weights.novelty", 0.4)
	viper.SetDefault("pipeline.score_weights.velocity", 0.4)
	viper.SetDefault("pipeline.score_weights.recency", 0.2)
	viper.SetDefault("pipeline.cluster_min_size", 5)
	viper.SetDefault("pipeline.cluster_random_seed", 42)
	viper.SetDefault("pipeline.max_results_cap", 500)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.add_source", false)
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("circuit.enabled", true)
	viper.SetDefault("circuit.failure_threshold", 5)
	viper.SetDefault("circuit.success_threshold", 3)
	viper.SetDefault("circuit.timeout", "60s")
	viper.SetDefault("circuit.max_requests", 10)
	viper.SetDefault("circuit.sliding_window", "60s")
	viper.SetDefault("circuit.min_request_count", 10)

	viper.SetDefault("retry.enabled", true)
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.initial_delay", "1s")
	viper.SetDefault("retry.max_delay", "30s")
	viper.SetDefault("retry.backoff_factor", 2.0)
	viper.SetDefault("retry.jitter", true)

	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.health_path", "/health")
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}

// NATSConfig represents NATS configuration.
type NATSConfig struct {
	URL           string   `mapstructure:"url" validate:"required,url"`
	ClusterID     string   `mapstructure:"cluster_id"`
	ClientID      string   `mapstructure:"client_id"`
	Subjects      []string `mapstructure:"subjects"`
	MaxReconnects int      `mapstructure:"max_reconnects"`
	ReconnectWait string   `mapstructure:"reconnect_wait"`
	Timeout       string   `mapstructure:"timeout"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	Token         string   `mapstructure:"token"`
	PingInterval  int      `mapstructure:"ping_interval"`
	MaxPingsOut   int      `mapstructure:"max_pings_out"`

	Embedded struct {
		Enabled  bool   `mapstructure:"enabled"`
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		LogLevel string `mapstructure:"log_level"`
		LogFile  string `mapstructure:"log_file"`

		Cluster struct {
			Name   string   `mapstructure:"name"`
			Host   string   `mapstructure:"host"`
			Port   int      `mapstructure:"port"`
			Routes []string `mapstructure:"routes"`
		} `mapstructure:"cluster"`

		Monitor struct {
			Host string `mapstructure:"host"`
			Port int    `mapstructure:"port"`
		} `mapstructure:"monitor"`

		Limits struct {
			MaxConnections int    `mapstructure:"max_connections"`
			MaxPayload     string `mapstructure:"max_payload"`
			MaxPending     string `mapstructure:"max_pending"`
		} `mapstructure:"limits"`
	} `mapstructure:"embedded"`

	TLS struct {
		Enabled            bool   `mapstructure:"enabled"`
		CertFile           string `mapstructure:"cert_file"`
		KeyFile            string `mapstructure:"key_file"`
		CAFile             string `mapstructure:"ca_file"`
		InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
	} `mapstructure:"tls"`

	JetStream struct {
		Enabled      bool   `mapstructure:"enabled"`
		Domain       string `mapstructure:"domain"`
		StoreDir     string `mapstructure:"store_dir"`
		MaxMemory    string `mapstructure:"max_memory"`
		MaxStorage   string `mapstructure:"max_storage"`
		SyncInterval string `mapstructure:"sync_interval"`
	} `mapstructure:"jetstream"`
}
