package miningmanager

import (
	"github.com/kaspanet/utxotree/domain/consensus"
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
	"github.com/kaspanet/utxotree/domain/consensus/processes/transactionvalidator"
)

// Factory instantiates new mining managers
type Factory interface {
	NewMiningManager(consensus consensus.Consensus, consensusConfig *consensus.Config, config *Config) MiningManager
}

type factory struct{}

// NewMiningManager instantiate a new mining manager that builds templates on
// top of consensus's tip out of consensus's transaction pool
func (f *factory) NewMiningManager(consensus consensus.Consensus, consensusConfig *consensus.Config,
	config *Config) MiningManager {

	return &miningManager{
		consensus:    consensus,
		batchApplier: batchapplier.New(transactionvalidator.New(consensusConfig.SignatureVerifier)),
		strategy:     config.Strategy,
	}
}

// NewFactory creates a new mining manager factory
func NewFactory() Factory {
	return &factory{}
}
