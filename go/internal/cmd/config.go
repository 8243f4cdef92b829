package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/hotpotato/go/clients"
	"github.com/mcdev12/hotpotato/go/internal/dbconfig"
	"github.com/mcdev12/hotpotato/go/internal/models"
	"github.com/mcdev12/hotpotato/go/internal/potato/events"
	"github.com/mcdev12/hotpotato/go/internal/potato/session"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// simulatedContract is the deployment address the in-process simulator answers to.
const simulatedContract = models.Address("0x000000000000000000000000000000000000d0d0")

type Config struct {
	Chain     string            `yaml:"chain"`
	Contracts map[string]string `yaml:"contracts"`
	RPCURL    string            `yaml:"rpc_url"`
	APIKey    string            `yaml:"api_key"`
	Signer    string            `yaml:"signer"`

	PollInterval time.Duration `yaml:"poll_interval"`
	TickInterval time.Duration `yaml:"tick_interval"`
	BlockTime    time.Duration `yaml:"block_time"`

	Simulator struct {
		DeadlineBlocks uint32   `yaml:"deadline_blocks"`
		Mapped         []string `yaml:"mapped"`
	} `yaml:"simulator"`

	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		StreamName    string `yaml:"stream_name"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Journal struct {
		Enabled  bool            `yaml:"enabled"`
		Database dbconfig.Config `yaml:"database"`
	} `yaml:"journal"`

	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`
}

func defaultConfig() Config {
	var cfg Config
	cfg.Chain = string(clients.ChainSimulated)
	cfg.Contracts = map[string]string{}
	cfg.PollInterval = session.DefaultConfig().Poll.Interval
	cfg.TickInterval = session.DefaultConfig().Countdown.TickInterval
	cfg.BlockTime = session.DefaultConfig().Countdown.BlockTime
	cfg.Simulator.DeadlineBlocks = 10

	js := events.DefaultJetStreamConfig()
	cfg.NATS.URL = js.URL
	cfg.NATS.StreamName = js.StreamName
	cfg.NATS.SubjectPrefix = js.SubjectPrefix

	cfg.Journal.Database = dbconfig.Default()
	cfg.Port = "8080"
	cfg.AllowedOrigins = []string{"*"}
	cfg.LogLevel = "info"
	return cfg
}

// loadConfig starts from the defaults, applies the YAML file at path when there is one and
// finally the environment.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Chain = getEnv("HOTPOTATO_CHAIN", c.Chain)
	c.RPCURL = getEnv("HOTPOTATO_RPC_URL", c.RPCURL)
	c.APIKey = getEnv("HOTPOTATO_API_KEY", c.APIKey)
	c.Signer = getEnv("HOTPOTATO_SIGNER", c.Signer)
	if contract := os.Getenv("HOTPOTATO_CONTRACT"); contract != "" {
		if c.Contracts == nil {
			c.Contracts = map[string]string{}
		}
		c.Contracts[c.Chain] = contract
	}

	c.PollInterval = getEnvAsDuration("HOTPOTATO_POLL_INTERVAL", c.PollInterval)
	c.TickInterval = getEnvAsDuration("HOTPOTATO_TICK_INTERVAL", c.TickInterval)
	c.BlockTime = getEnvAsDuration("HOTPOTATO_BLOCK_TIME", c.BlockTime)
	c.Simulator.DeadlineBlocks = uint32(getEnvAsInt("HOTPOTATO_SIM_DEADLINE_BLOCKS", int(c.Simulator.DeadlineBlocks)))

	c.NATS.Enabled = getEnvAsBool("NATS_ENABLED", c.NATS.Enabled)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)

	c.Journal.Enabled = getEnvAsBool("JOURNAL_ENABLED", c.Journal.Enabled)
	c.Journal.Database = c.Journal.Database.ApplyEnv()

	c.Port = getEnv("PORT", c.Port)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

func (c *Config) validate() error {
	chain := clients.Chain(c.Chain)
	if !clients.ValidateChain(chain) {
		return fmt.Errorf("unknown chain %q", c.Chain)
	}
	if c.Simulated() {
		return nil
	}
	if c.Contract().IsZero() {
		return fmt.Errorf("no contract deployment configured for chain %q", c.Chain)
	}
	if c.Endpoint() == "" {
		return errors.New("no RPC URL configured")
	}
	return nil
}

// Simulated reports whether the engine runs against the in-process simulator.
func (c *Config) Simulated() bool {
	return clients.Chain(c.Chain) == clients.ChainSimulated
}

// Contract returns the deployment on the selected chain.
func (c *Config) Contract() models.Address {
	if addr, ok := c.Contracts[c.Chain]; ok && strings.TrimSpace(addr) != "" {
		return models.NewAddress(addr)
	}
	if c.Simulated() {
		return simulatedContract
	}
	return ""
}

// Endpoint returns the configured RPC URL or the chain's default.
func (c *Config) Endpoint() string {
	if c.RPCURL != "" {
		return c.RPCURL
	}
	return clients.GetChains()[clients.Chain(c.Chain)].RPCURL
}

func (c *Config) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Poll.Interval = c.PollInterval
	cfg.Countdown.TickInterval = c.TickInterval
	cfg.Countdown.BlockTime = c.BlockTime
	return cfg
}

func (c *Config) JetStreamConfig() events.JetStreamConfig {
	cfg := events.DefaultJetStreamConfig()
	cfg.URL = c.NATS.URL
	if c.NATS.StreamName != "" {
		cfg.StreamName = c.NATS.StreamName
	}
	if c.NATS.SubjectPrefix != "" {
		cfg.SubjectPrefix = c.NATS.SubjectPrefix
	}
	return cfg
}

func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
