package proofs

import "time"

// Amount bounds in lamports. The minimum keeps withdrawals above fee dust;
// the maximum guards against absurd values and overflow.
const (
	MinAmountLamports = 1_000_000         // 0.001 SOL
	MaxAmountLamports = 1_000_000_000_000 // 1000 SOL
)

// Config tunes the proof job pipeline.
type Config struct {
	// Workers is the fixed worker pool size.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// QueueSize bounds the pending queue; submissions beyond it are rejected.
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
	// JobTimeout is the wall-clock ceiling for a single proof run.
	JobTimeout time.Duration `mapstructure:"job_timeout" yaml:"job_timeout"`
	// ReapInterval is how often stuck processing jobs are swept.
	ReapInterval time.Duration `mapstructure:"reap_interval" yaml:"reap_interval"`
	// EstimatedSeconds is returned to clients on submission.
	EstimatedSeconds int `mapstructure:"estimated_seconds" yaml:"estimated_seconds"`
	// Denominations lists the fixed-size pools. The variable pool
	// (denomination 0) is always available.
	Denominations []uint64 `mapstructure:"denominations" yaml:"denominations"`
	// MetricsEnabled registers pipeline metrics on the shared registry.
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`

	Store StoreConfig `mapstructure:"store" yaml:"store"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Workers:          2,
		QueueSize:        100,
		JobTimeout:       90 * time.Second,
		ReapInterval:     15 * time.Second,
		EstimatedSeconds: 5,
		Denominations:    []uint64{1_000_000_000, 10_000_000_000, 100_000_000_000},
	}
}

// DenominationValid reports whether d names a configured pool. Zero is the
// variable-amount pool.
func (c Config) DenominationValid(d uint64) bool {
	if d == 0 {
		return true
	}
	for _, known := range c.Denominations {
		if known == d {
			return true
		}
	}
	return false
}
