package relay

// Config controls the relay gate.
type Config struct {
	// Enabled gates all relay operations; info remains available.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// FeeBps is the relayer fee on unshields in basis points.
	FeeBps uint64 `mapstructure:"fee_bps" yaml:"fee_bps"`
	// MetricsEnabled registers relay metrics on the shared registry.
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// DefaultConfig returns production defaults: enabled at a 0.3% fee.
func DefaultConfig() Config {
	return Config{Enabled: true, FeeBps: 30}
}
