package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

// Config holds the full application configuration. Environment variables
// override file values after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode           string   `yaml:"mode"` // MOCK, PAPER, REAL
		Instruments    []string `yaml:"instruments"`
		InitialCapital float64  `yaml:"initial_capital"`
		InboxSize      int      `yaml:"inbox_size"`
	} `yaml:"trading"`

	Strategy domain.StrategyParameters `yaml:"strategy"`

	Feed struct {
		WSURL           string `yaml:"ws_url"`
		ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
		PingIntervalSec int    `yaml:"ping_interval_sec"`
	} `yaml:"feed"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{Strategy: domain.DefaultParameters()}
	cfg.Trading.Mode = "PAPER"
	cfg.Trading.InitialCapital = 100000
	cfg.Trading.InboxSize = 1024
	cfg.Feed.ReadTimeoutSec = 60
	cfg.Feed.PingIntervalSec = 30
	cfg.Logging.Level = "info"
	return cfg
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	mode := strings.ToUpper(c.Trading.Mode)
	if mode != "MOCK" && mode != "PAPER" && mode != "REAL" {
		return fmt.Errorf("unknown trading mode: %s", c.Trading.Mode)
	}
	if len(c.Trading.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if _, err := c.Instruments(); err != nil {
		return err
	}
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", c.Trading.InitialCapital)
	}
	if c.Trading.InboxSize < 1 {
		return fmt.Errorf("inbox_size must be >= 1, got %d", c.Trading.InboxSize)
	}
	if c.Feed.WSURL != "" && !strings.HasPrefix(c.Feed.WSURL, "ws://") && !strings.HasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}
	if c.Feed.ReadTimeoutSec <= 0 || c.Feed.PingIntervalSec <= 0 {
		return fmt.Errorf("feed timeouts must be positive")
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	return nil
}

// Instruments parses the configured instrument names.
func (c *Config) Instruments() ([]domain.Instrument, error) {
	out := make([]domain.Instrument, 0, len(c.Trading.Instruments))
	for _, name := range c.Trading.Instruments {
		instr, err := domain.ParseInstrument(name)
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}

// overrideWithEnv applies environment overrides. Environment variables
// take precedence over the config file.
func overrideWithEnv(cfg *Config) {
	if mode := os.Getenv("TRADING_MODE"); mode != "" {
		cfg.Trading.Mode = mode
	}
	if url := os.Getenv("FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
}
