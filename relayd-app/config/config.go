package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/whalevault/relayd/server/api"
	"github.com/whalevault/relayd/x/ledger"
	"github.com/whalevault/relayd/x/proofs"
	"github.com/whalevault/relayd/x/proofs/prover"
	"github.com/whalevault/relayd/x/relay"
)

// Config holds the complete application configuration
type Config struct {
	API     api.Config     `mapstructure:"api"     yaml:"api"`
	Log     LogConfig      `mapstructure:"log"     yaml:"log"`
	Metrics MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Proofs  proofs.Config  `mapstructure:"proofs"  yaml:"proofs"`
	Prover  prover.Config  `mapstructure:"prover"  yaml:"prover"`
	Relay   relay.Config   `mapstructure:"relay"   yaml:"relay"`
	Ledger  ledger.Config  `mapstructure:"ledger"  yaml:"ledger"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  env:"LOG_LEVEL"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty" env:"LOG_PRETTY"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" env:"METRICS_ENABLED"`
	Path    string `mapstructure:"path"    yaml:"path"    env:"METRICS_PATH"`
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.read_header_timeout", "5s")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "30s")
	v.SetDefault("api.idle_timeout", "120s")
	v.SetDefault("api.max_header_bytes", 1048576)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	proofDefaults := proofs.DefaultConfig()
	v.SetDefault("proofs.workers", proofDefaults.Workers)
	v.SetDefault("proofs.queue_size", proofDefaults.QueueSize)
	v.SetDefault("proofs.job_timeout", proofDefaults.JobTimeout.String())
	v.SetDefault("proofs.reap_interval", proofDefaults.ReapInterval.String())
	v.SetDefault("proofs.estimated_seconds", proofDefaults.EstimatedSeconds)
	v.SetDefault("proofs.denominations", proofDefaults.Denominations)
	v.SetDefault("proofs.store.backend", "syncmap")
	v.SetDefault("proofs.store.directory", "")

	proverDefaults := prover.DefaultConfig()
	v.SetDefault("prover.command", proverDefaults.Command)
	v.SetDefault("prover.script", proverDefaults.Script)
	v.SetDefault("prover.work_dir", "")
	v.SetDefault("prover.timeout", proverDefaults.Timeout.String())

	relayDefaults := relay.DefaultConfig()
	v.SetDefault("relay.enabled", relayDefaults.Enabled)
	v.SetDefault("relay.fee_bps", relayDefaults.FeeBps)

	ledgerDefaults := ledger.DefaultConfig()
	v.SetDefault("ledger.rpc_url", ledgerDefaults.RPCURL)
	v.SetDefault("ledger.program_id", ledgerDefaults.ProgramID)
	v.SetDefault("ledger.keypair_path", ledgerDefaults.KeypairPath)
	v.SetDefault("ledger.rpc_timeout", ledgerDefaults.RPCTimeout.String())
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateProofs(); err != nil {
		return err
	}
	if err := c.validateRelay(); err != nil {
		return err
	}
	return c.validateLedger()
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.ListenAddr) == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	if c.API.MaxHeaderBytes <= 0 {
		return fmt.Errorf("api.max_header_bytes must be positive, got %d", c.API.MaxHeaderBytes)
	}
	return nil
}

func (c *Config) validateProofs() error {
	if c.Proofs.Workers <= 0 {
		return fmt.Errorf("proofs.workers must be positive, got %d", c.Proofs.Workers)
	}
	if c.Proofs.QueueSize <= 0 {
		return fmt.Errorf("proofs.queue_size must be positive, got %d", c.Proofs.QueueSize)
	}
	if c.Proofs.JobTimeout <= 0 {
		return fmt.Errorf("proofs.job_timeout must be positive")
	}
	if c.Proofs.Store.Backend == "file" && strings.TrimSpace(c.Proofs.Store.Directory) == "" {
		return fmt.Errorf("proofs.store.directory is required for the file backend")
	}
	if strings.TrimSpace(c.Prover.Script) == "" {
		return fmt.Errorf("prover.script must not be empty")
	}
	return nil
}

func (c *Config) validateRelay() error {
	// 100% is well past any sane relay fee.
	if c.Relay.FeeBps > 10_000 {
		return fmt.Errorf("relay.fee_bps must be at most 10000, got %d", c.Relay.FeeBps)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if strings.TrimSpace(c.Ledger.RPCURL) == "" {
		return fmt.Errorf("ledger.rpc_url must not be empty")
	}
	if strings.TrimSpace(c.Ledger.ProgramID) == "" {
		return fmt.Errorf("ledger.program_id must not be empty")
	}
	if c.Relay.Enabled && strings.TrimSpace(c.Ledger.KeypairPath) == "" {
		return fmt.Errorf("ledger.keypair_path is required when relay is enabled")
	}
	return nil
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		API: api.Config{
			ListenAddr:        ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Proofs: proofs.DefaultConfig(),
		Prover: prover.DefaultConfig(),
		Relay:  relay.DefaultConfig(),
		Ledger: ledger.DefaultConfig(),
	}
}
