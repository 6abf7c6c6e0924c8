package miningmanager

import (
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
)

// Config represents a mining manager configuration
type Config struct {
	// Strategy selects the pool transactions that go into block templates
	Strategy batchapplier.Strategy
}

// DefaultConfig returns the default mining manager configuration
func DefaultConfig() *Config {
	return &Config{
		Strategy: batchapplier.FeeMaximizing,
	}
}
