package consensus

import (
	"sync"

	"github.com/kaspanet/utxotree/domain/consensus/datastructures/blockindex"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
	"github.com/kaspanet/utxotree/domain/consensus/processes/transactionvalidator"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/utxo"
	"github.com/kaspanet/utxotree/domain/miningmanager/mempool"
	"github.com/pkg/errors"
)

// Factory instantiates new Consensuses
type Factory interface {
	NewConsensus(config *Config, genesis *externalapi.DomainBlock) (Consensus, error)
	NewTestConsensus(config *Config, genesis *externalapi.DomainBlock) (TestConsensus, error)
}

type factory struct{}

// NewFactory creates a new Consensus factory
func NewFactory() Factory {
	return &factory{}
}

// NewConsensus instantiates a new Consensus whose tree is rooted at genesis.
// The genesis block is attached at height 0 on top of an empty UTXO set;
// its parent hash is ignored.
func (f *factory) NewConsensus(config *Config, genesis *externalapi.DomainBlock) (Consensus, error) {
	return f.newConsensus(config, genesis)
}

func (f *factory) NewTestConsensus(config *Config, genesis *externalapi.DomainBlock) (TestConsensus, error) {
	c, err := f.newConsensus(config, genesis)
	if err != nil {
		return nil, err
	}
	return &testConsensus{consensus: c}, nil
}

func (f *factory) newConsensus(config *Config, genesis *externalapi.DomainBlock) (*consensus, error) {
	if config.SignatureVerifier == nil {
		return nil, errors.New("a signature verifier is required")
	}
	mempoolConfig := config.Mempool
	if mempoolConfig == nil {
		mempoolConfig = mempool.DefaultConfig()
	}

	transactionValidator := transactionvalidator.New(config.SignatureVerifier)
	c := &consensus{
		lock:            &sync.RWMutex{},
		retentionWindow: config.RetentionWindow,

		transactionValidator: transactionValidator,
		batchApplier:         batchapplier.New(transactionValidator),
		blockIndex:           blockindex.New(),
		mempool:              mempool.New(mempoolConfig),
	}

	genesisNode, err := c.buildGenesisNode(genesis)
	if err != nil {
		return nil, errors.Wrap(err, "invalid genesis block")
	}
	err = c.blockIndex.Insert(genesisNode)
	if err != nil {
		return nil, err
	}

	log.Infof("Consensus initialized with genesis %s and a retention window of %d",
		genesisNode.Hash, c.retentionWindow)
	return c, nil
}

func (s *consensus) buildGenesisNode(genesis *externalapi.DomainBlock) (*blockindex.BlockNode, error) {
	err := validateBlockTransactionShapes(genesis)
	if err != nil {
		return nil, err
	}
	genesisHash := consensushashing.BlockHash(genesis)

	utxoSet, _, err := s.batchApplier.ApplyAll(genesis.Transactions, utxo.NewUTXOSet())
	if err != nil {
		return nil, err
	}
	err = utxoSet.AddCoinbaseOutput(genesis.Coinbase)
	if err != nil {
		return nil, err
	}

	return &blockindex.BlockNode{
		Block:   genesis.Clone(),
		Hash:    genesisHash,
		Height:  0,
		UTXOSet: utxoSet.ReadOnly(),
	}, nil
}
