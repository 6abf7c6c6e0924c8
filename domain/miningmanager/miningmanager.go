package miningmanager

import (
	"math"

	"github.com/kaspanet/utxotree/domain/consensus"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/utxo"
	"github.com/pkg/errors"
)

// ErrCoinbaseTransaction indicates a coinbase transaction was submitted to
// the transaction pool
var ErrCoinbaseTransaction = errors.New("coinbase transactions can't enter the transaction pool")

// MiningManager creates block templates for mining as well as maintaining
// known transactions that have not yet been added to any block
type MiningManager interface {
	GetBlockTemplate(coinbaseOwner []byte, coinbaseValue int64, payload []byte) (*externalapi.DomainBlock, error)
	ValidateAndInsertTransaction(transaction *externalapi.DomainTransaction) error
	AllTransactions() []*externalapi.DomainTransaction
}

type miningManager struct {
	consensus    consensus.Consensus
	batchApplier *batchapplier.BatchApplier
	strategy     batchapplier.Strategy
}

// GetBlockTemplate creates a block on top of the current tip, holding the
// pool transactions the configured strategy selects. The coinbase pays
// coinbaseValue plus all collected fees to coinbaseOwner.
func (mm *miningManager) GetBlockTemplate(coinbaseOwner []byte, coinbaseValue int64,
	payload []byte) (*externalapi.DomainBlock, error) {

	tipHash := mm.consensus.MaxHeightBlockHash()
	tipUTXOSet, err := mm.consensus.GetUTXOSet(tipHash)
	if err != nil {
		return nil, err
	}

	candidates := mm.candidateTransactions()
	result := mm.batchApplier.Apply(candidates, utxo.CloneReadOnly(tipUTXOSet), mm.strategy)
	if coinbaseValue > math.MaxInt64-result.TotalFee {
		return nil, errors.Wrapf(ruleerrors.ErrValueOverflow,
			"coinbase value %d plus %d in fees overflows", coinbaseValue, result.TotalFee)
	}

	log.Debugf("Built a block template on top of %s with %d out of %d pool transactions and %d in fees",
		tipHash, len(result.Applied), len(candidates), result.TotalFee)

	return &externalapi.DomainBlock{
		ParentHash:   *tipHash,
		Transactions: result.Applied,
		Coinbase: &externalapi.DomainTransaction{
			Outputs: []*externalapi.DomainTransactionOutput{{
				Value: coinbaseValue + result.TotalFee,
				Owner: coinbaseOwner,
			}},
			Payload: payload,
		},
	}, nil
}

// candidateTransactions returns the pool transactions, skipping coinbases
// that were added to the pool without validation
func (mm *miningManager) candidateTransactions() []*externalapi.DomainTransaction {
	poolTransactions := mm.consensus.TransactionPool().AllTransactions()
	candidates := make([]*externalapi.DomainTransaction, 0, len(poolTransactions))
	for _, transaction := range poolTransactions {
		if transaction.IsCoinbase() {
			continue
		}
		candidates = append(candidates, transaction)
	}
	return candidates
}

// ValidateAndInsertTransaction validates the given transaction against the
// current tip, and adds it to the set of known transactions that have not
// yet been added to any block
func (mm *miningManager) ValidateAndInsertTransaction(transaction *externalapi.DomainTransaction) error {
	if transaction.IsCoinbase() {
		return errors.Wrapf(ErrCoinbaseTransaction, "transaction %s",
			consensushashing.TransactionID(transaction))
	}
	_, err := mm.consensus.ValidateTransaction(transaction)
	if err != nil {
		return err
	}
	return mm.consensus.AddTransaction(transaction)
}

// AllTransactions returns every transaction in the pool
func (mm *miningManager) AllTransactions() []*externalapi.DomainTransaction {
	return mm.consensus.TransactionPool().AllTransactions()
}
