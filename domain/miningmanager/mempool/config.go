package mempool

const defaultMaximumTransactionCount = 1_000_000

// Config represents a mempool configuration
type Config struct {
	MaximumTransactionCount int
}

// DefaultConfig returns the default mempool configuration
func DefaultConfig() *Config {
	return &Config{
		MaximumTransactionCount: defaultMaximumTransactionCount,
	}
}
