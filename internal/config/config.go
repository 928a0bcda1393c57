package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds the configuration shared by the agent daemon and the CLI
type Config struct {
	Env         string         `yaml:"env" env:"PONDOK_ENV" env-default:"local"`
	StoragePath string         `yaml:"storage_path" env:"PONDOK_STORAGE_PATH" env-default:"./data/pondok-tracker.db"`
	Log         LogConfig      `yaml:"log"`
	Backend     BackendConfig  `yaml:"backend"`
	Agent       AgentConfig    `yaml:"agent"`
	Device      DeviceConfig   `yaml:"device"`
	Tracking    TrackingConfig `yaml:"tracking"`
	Client      ClientConfig   `yaml:"client"`
	Metrics     MetricsConfig  `yaml:"metrics"`
	Tray        TrayConfig     `yaml:"tray"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"PONDOK_LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"PONDOK_LOG_FORMAT" env-default:"json"`
}

// BackendConfig describes the remote school API the agent reports to
type BackendConfig struct {
	BaseURL      string `yaml:"base_url" env:"PONDOK_BACKEND_BASE_URL" env-default:"https://api-dev.pondokinformatika.id/api"`
	Timeout      int    `yaml:"timeout" env:"PONDOK_BACKEND_TIMEOUT" env-default:"30"` // seconds
	AgentVersion string `yaml:"agent_version" env:"PONDOK_AGENT_VERSION" env-default:"1.0.0"`
}

// AgentConfig describes the local HTTP API the agent serves to front ends
type AgentConfig struct {
	Host string `yaml:"host" env:"PONDOK_AGENT_HOST" env-default:"127.0.0.1"`
	Port int    `yaml:"port" env:"PONDOK_AGENT_PORT" env-default:"7717"`
	// Browser extension URL reports
	ExtensionEnabled bool `yaml:"extension_enabled" env:"PONDOK_EXTENSION_ENABLED" env-default:"true"`
	URLStoreTTL      int  `yaml:"url_store_ttl" env:"PONDOK_URL_STORE_TTL" env-default:"30"` // seconds
}

type DeviceConfig struct {
	ID   string `yaml:"id" env:"PONDOK_DEVICE_ID"`
	Name string `yaml:"name" env:"PONDOK_DEVICE_NAME"`
}

// TrackingConfig holds intervals in seconds
type TrackingConfig struct {
	SampleInterval     int `yaml:"sample_interval" env:"PONDOK_SAMPLE_INTERVAL" env-default:"1"`
	WindowPollInterval int `yaml:"window_poll_interval" env:"PONDOK_WINDOW_POLL_INTERVAL" env-default:"1"`
	IdleThreshold      int `yaml:"idle_threshold" env:"PONDOK_IDLE_THRESHOLD" env-default:"300"`
	HeartbeatInterval  int `yaml:"heartbeat_interval" env:"PONDOK_HEARTBEAT_INTERVAL" env-default:"60"`
	BatchSize          int `yaml:"batch_size" env:"PONDOK_BATCH_SIZE" env-default:"50"`
	BatchFlushInterval int `yaml:"batch_flush_interval" env:"PONDOK_BATCH_FLUSH_INTERVAL" env-default:"300"`
	QueueRetryInterval int `yaml:"queue_retry_interval" env:"PONDOK_QUEUE_RETRY_INTERVAL" env-default:"60"`
}

// ClientConfig is used by front ends talking to the local agent
type ClientConfig struct {
	AgentURL     string `yaml:"agent_url" env:"PONDOK_CLIENT_AGENT_URL" env-default:"http://127.0.0.1:7717"`
	PollInterval int    `yaml:"poll_interval" env:"PONDOK_CLIENT_POLL_INTERVAL" env-default:"1"` // seconds
	Timeout      int    `yaml:"timeout" env:"PONDOK_CLIENT_TIMEOUT" env-default:"5"`             // seconds
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"PONDOK_METRICS_ENABLED" env-default:"true"`
}

type TrayConfig struct {
	Enabled      bool   `yaml:"enabled" env:"PONDOK_TRAY_ENABLED" env-default:"false"`
	DashboardURL string `yaml:"dashboard_url" env:"PONDOK_DASHBOARD_URL" env-default:"https://pondokinformatika.id"`
}

// LoadConfig reads configuration from the YAML file at path, falling back to
// environment variables and defaults when the file does not exist
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := validate(&cfg); err != nil {
				return nil, fmt.Errorf("invalid configuration: %w", err)
			}
			return &cfg, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// AgentAddr returns the listen address of the agent HTTP API
func (c *Config) AgentAddr() string {
	return fmt.Sprintf("%s:%d", c.Agent.Host, c.Agent.Port)
}

func validate(cfg *Config) error {
	if cfg.Agent.Port <= 0 || cfg.Agent.Port > 65535 {
		return fmt.Errorf("invalid agent port: %d", cfg.Agent.Port)
	}
	if _, err := url.ParseRequestURI(cfg.Backend.BaseURL); err != nil {
		return fmt.Errorf("invalid backend base_url %q: %w", cfg.Backend.BaseURL, err)
	}
	if _, err := url.ParseRequestURI(cfg.Client.AgentURL); err != nil {
		return fmt.Errorf("invalid client agent_url %q: %w", cfg.Client.AgentURL, err)
	}

	positive := map[string]int{
		"backend.timeout":               cfg.Backend.Timeout,
		"tracking.sample_interval":      cfg.Tracking.SampleInterval,
		"tracking.window_poll_interval": cfg.Tracking.WindowPollInterval,
		"tracking.idle_threshold":       cfg.Tracking.IdleThreshold,
		"tracking.heartbeat_interval":   cfg.Tracking.HeartbeatInterval,
		"tracking.batch_size":           cfg.Tracking.BatchSize,
		"tracking.batch_flush_interval": cfg.Tracking.BatchFlushInterval,
		"tracking.queue_retry_interval": cfg.Tracking.QueueRetryInterval,
		"client.poll_interval":          cfg.Client.PollInterval,
		"client.timeout":                cfg.Client.Timeout,
		"agent.url_store_ttl":           cfg.Agent.URLStoreTTL,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}

	if cfg.StoragePath == "" {
		return fmt.Errorf("storage path is required")
	}
	if cfg.StoragePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return nil
}
