package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode   string `yaml:"mode"`
	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Deriv struct {
		Endpoint     string        `yaml:"endpoint"`
		AppID        string        `yaml:"app_id"`
		APITokenEnv  string        `yaml:"api_token_env"`
		PingInterval time.Duration `yaml:"ping_interval"`
		CallTimeout  time.Duration `yaml:"call_timeout"`
	} `yaml:"deriv"`
	Storage struct {
		Path          string        `yaml:"path"`
		InMemory      bool          `yaml:"in_memory"`
		TickRetention time.Duration `yaml:"tick_retention"`
	} `yaml:"storage"`
	Analysis struct {
		WindowSize      int           `yaml:"window_size"`
		MinSample       int           `yaml:"min_sample"`
		ParityMargin    float64       `yaml:"parity_margin"`
		OverUnderMargin float64       `yaml:"over_under_margin"`
		CacheTTL        time.Duration `yaml:"cache_ttl"`
	} `yaml:"analysis"`
	TradeLog struct {
		Dir               string `yaml:"dir"`
		CompressAfterDays int    `yaml:"compress_after_days"`
	} `yaml:"tradelog"`
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}
	if c.Deriv.Endpoint == "" {
		return fmt.Errorf("deriv.endpoint cannot be empty")
	}
	if c.Deriv.AppID == "" {
		return fmt.Errorf("deriv.app_id cannot be empty")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path cannot be empty unless storage.in_memory is set")
	}
	if c.Analysis.WindowSize < c.Analysis.MinSample {
		return fmt.Errorf("analysis.window_size %d smaller than analysis.min_sample %d",
			c.Analysis.WindowSize, c.Analysis.MinSample)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// DefaultConfig returns a runnable configuration for when no config file
// is present.
func DefaultConfig() *Config {
	c := &Config{Mode: "DRY_RUN"}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Deriv.Endpoint == "" {
		c.Deriv.Endpoint = "wss://ws.derivws.com/websockets/v3"
	}
	if c.Deriv.AppID == "" {
		c.Deriv.AppID = "1089"
	}
	if c.Deriv.APITokenEnv == "" {
		c.Deriv.APITokenEnv = "DERIV_API_TOKEN"
	}
	if c.Deriv.PingInterval == 0 {
		c.Deriv.PingInterval = 30 * time.Second
	}
	if c.Deriv.CallTimeout == 0 {
		c.Deriv.CallTimeout = 30 * time.Second
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		c.Storage.Path = "data/badger"
	}
	if c.Storage.TickRetention == 0 {
		c.Storage.TickRetention = time.Hour
	}
	if c.Analysis.WindowSize == 0 {
		c.Analysis.WindowSize = 100
	}
	if c.Analysis.MinSample == 0 {
		c.Analysis.MinSample = 20
	}
	if c.Analysis.ParityMargin == 0 {
		c.Analysis.ParityMargin = 10
	}
	if c.Analysis.OverUnderMargin == 0 {
		c.Analysis.OverUnderMargin = 15
	}
	if c.Analysis.CacheTTL == 0 {
		c.Analysis.CacheTTL = 5 * time.Second
	}
	if c.TradeLog.Dir == "" {
		c.TradeLog.Dir = "logs/trades"
	}
	if c.TradeLog.CompressAfterDays == 0 {
		c.TradeLog.CompressAfterDays = 7
	}
}
