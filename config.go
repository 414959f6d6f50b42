package bankxatm

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level" split_words:"true"`
	NodeID   int64  `yaml:"node_id" split_words:"true"`
	Server   struct {
		Addr        string `yaml:"addr"`
		TokenSecret string `yaml:"token_secret" split_words:"true"`
	} `yaml:"server"`
	Ledger struct {
		OpeningBalance decimal.Decimal `yaml:"opening_balance" split_words:"true"`
		Seed           []SeedCustomer  `yaml:"seed" ignored:"true"`
	} `yaml:"ledger"`
	Limits struct {
		Concurrency int64         `yaml:"concurrency"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"limits"`
	Breaker BreakerConfig `yaml:"breaker"`
	Console struct {
		Currency          string          `yaml:"currency"`
		PreferencesPath   string          `yaml:"preferences_path" split_words:"true"`
		AnimationStep     decimal.Decimal `yaml:"animation_step" split_words:"true"`
		AnimationInterval time.Duration   `yaml:"animation_interval" split_words:"true"`
	} `yaml:"console"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests" split_words:"true"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures" split_words:"true"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		LogLevel: "info",
		NodeID:   1,
	}
	cfg.Server.Addr = ":3000"
	cfg.Ledger.OpeningBalance = DefaultOpeningBalance
	cfg.Limits.Concurrency = 64
	cfg.Limits.Timeout = 500 * time.Millisecond
	cfg.Breaker = BreakerConfig{
		MaxRequests:         5,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 10,
	}
	cfg.Console.Currency = "TShs."
	cfg.Console.PreferencesPath = ".atm_prefs.yml"
	cfg.Console.AnimationStep = decimal.NewFromInt(10)
	cfg.Console.AnimationInterval = 50 * time.Millisecond
	return cfg
}

// LoadConfig reads the YAML file at path over the defaults, then applies
// ATM_-prefixed environment overrides such as ATM_SERVER_TOKEN_SECRET.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		cfgfl, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer cfgfl.Close()
		if err = yaml.NewDecoder(cfgfl).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
	}
	if err := envconfig.Process("atm", cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
