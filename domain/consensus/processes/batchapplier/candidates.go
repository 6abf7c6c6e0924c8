package batchapplier

import (
	"github.com/kaspanet/utxotree/domain/consensus/model"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/utxo"
)

type candidateTx struct {
	tx    *externalapi.DomainTransaction
	id    *externalapi.DomainTransactionID
	index int

	// isValid and fee are measured against the UTXO set extended with the
	// outputs of every candidate in the batch. A candidate that isn't valid
	// there can't be valid in any order.
	isValid bool
	fee     int64
}

func newCandidateTxs(candidates []*externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet,
	validator model.TransactionValidator) []*candidateTx {

	extendedSet := utxo.CloneReadOnly(utxoSet)
	for _, tx := range candidates {
		extendedSet.AddTransactionOutputs(tx)
	}

	candidateTxs := make([]*candidateTx, len(candidates))
	for i, tx := range candidates {
		fee, err := validator.ValidateTransaction(tx, extendedSet.ReadOnly())
		candidateTxs[i] = &candidateTx{
			tx:      tx,
			id:      consensushashing.TransactionID(tx),
			index:   i,
			isValid: err == nil,
			fee:     fee,
		}
	}
	return candidateTxs
}

// isBetterThan orders valid candidates before invalid ones, then by
// descending fee, then by ascending ID
func (c *candidateTx) isBetterThan(other *candidateTx) bool {
	if c.isValid != other.isValid {
		return c.isValid
	}
	if !c.isValid {
		return c.index < other.index
	}
	if c.fee != other.fee {
		return c.fee > other.fee
	}
	return c.id.Less(other.id)
}

func transactionsOf(candidateTxs []*candidateTx) []*externalapi.DomainTransaction {
	transactions := make([]*externalapi.DomainTransaction, len(candidateTxs))
	for i, candidate := range candidateTxs {
		transactions[i] = candidate.tx
	}
	return transactions
}

// dependencyOrder orders candidates so that every candidate comes after the
// candidates whose outputs it spends, keeping the original order otherwise.
func dependencyOrder(candidateTxs []*candidateTx) []*candidateTx {
	byID := make(map[externalapi.DomainTransactionID]*candidateTx, len(candidateTxs))
	for _, candidate := range candidateTxs {
		if _, ok := byID[*candidate.id]; !ok {
			byID[*candidate.id] = candidate
		}
	}

	parents := make(map[*candidateTx][]*candidateTx, len(candidateTxs))
	for _, candidate := range candidateTxs {
		for _, input := range candidate.tx.Inputs {
			parent, ok := byID[input.PreviousOutpoint.TransactionID]
			if ok && parent != candidate {
				parents[candidate] = append(parents[candidate], parent)
			}
		}
	}

	ordered := make([]*candidateTx, 0, len(candidateTxs))
	isPlaced := make(map[*candidateTx]bool, len(candidateTxs))
	for len(ordered) < len(candidateTxs) {
		placedAny := false
		for _, candidate := range candidateTxs {
			if isPlaced[candidate] || !allPlaced(parents[candidate], isPlaced) {
				continue
			}
			isPlaced[candidate] = true
			ordered = append(ordered, candidate)
			placedAny = true
		}

		// Only a dependency cycle can stop progress, and content addressed
		// transactions can't form one. Place the rest as they are.
		if !placedAny {
			for _, candidate := range candidateTxs {
				if !isPlaced[candidate] {
					isPlaced[candidate] = true
					ordered = append(ordered, candidate)
				}
			}
		}
	}
	return ordered
}

func allPlaced(candidateTxs []*candidateTx, isPlaced map[*candidateTx]bool) bool {
	for _, candidate := range candidateTxs {
		if !isPlaced[candidate] {
			return false
		}
	}
	return true
}
