package batchapplier

import (
	"github.com/kaspanet/utxotree/domain/consensus/model"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/utxo"
	"github.com/kaspanet/utxotree/infrastructure/logger"
	"github.com/pkg/errors"
)

// Result describes the outcome of applying a batch of transactions
type Result struct {
	// Applied holds the transactions folded into the set, in application order
	Applied []*externalapi.DomainTransaction

	// Rejected holds every other candidate along with the reason it was
	// rejected when its turn came
	Rejected []ruleerrors.InvalidTransaction

	TotalFee int64
}

// BatchApplier folds batches of candidate transactions into UTXO sets
type BatchApplier struct {
	validator model.TransactionValidator
}

// New instantiates a new BatchApplier that validates transactions with
// validator
func New(validator model.TransactionValidator) *BatchApplier {
	return &BatchApplier{validator: validator}
}

// Apply folds a conflict-free subset of candidates into utxoSet. strategy
// decides the order in which candidates are tried; every candidate is then
// validated against the current state of utxoSet and, if valid, applied
// immediately, so later candidates see the effects of earlier ones.
//
// Each transaction is applied atomically, so on return utxoSet equals its
// original content with exactly the effects of result.Applied folded in.
func (ba *BatchApplier) Apply(candidates []*externalapi.DomainTransaction, utxoSet *utxo.UTXOSet,
	strategy Strategy) *Result {

	onEnd := logger.LogAndMeasureExecutionTime(log, "Apply")
	defer onEnd()

	order := strategy.Order(candidates, utxoSet.ReadOnly(), ba.validator)
	result := ba.applyInOrder(completeOrder(candidates, order), utxoSet)

	log.Debugf("Applied %d out of %d candidates with the %s strategy, collecting %d in fees",
		len(result.Applied), len(candidates), strategy.Name(), result.TotalFee)
	if len(result.Rejected) > 0 {
		log.Tracef("Rejected candidates: %s", result.Rejected)
	}
	return result
}

// ApplyAll applies transactions in order to a copy of utxoSet, all or
// nothing. If any of them is rejected, an ErrPartialBlock error listing
// every rejected transaction is returned. utxoSet itself is never modified.
func (ba *BatchApplier) ApplyAll(transactions []*externalapi.DomainTransaction,
	utxoSet externalapi.ReadOnlyUTXOSet) (*utxo.UTXOSet, int64, error) {

	workingSet := utxo.CloneReadOnly(utxoSet)
	result := ba.applyInOrder(transactions, workingSet)
	if len(result.Rejected) > 0 {
		return nil, 0, ruleerrors.NewErrInvalidTransactionsInBlock(result.Rejected)
	}
	return workingSet, result.TotalFee, nil
}

func (ba *BatchApplier) applyInOrder(transactions []*externalapi.DomainTransaction, utxoSet *utxo.UTXOSet) *Result {
	result := &Result{
		Applied: make([]*externalapi.DomainTransaction, 0, len(transactions)),
	}

	for _, tx := range transactions {
		fee, err := ba.validator.ValidateTransaction(tx, utxoSet.ReadOnly())
		if err == nil {
			_, err = utxoSet.AddTransaction(tx)
			if err != nil {
				err = errors.Wrap(err, "transaction passed validation but couldn't be applied")
			}
		}
		if err != nil {
			result.Rejected = append(result.Rejected, ruleerrors.InvalidTransaction{Transaction: tx, Error: err})
			continue
		}

		result.Applied = append(result.Applied, tx)
		result.TotalFee += fee
	}
	return result
}

// completeOrder makes sure every candidate is tried exactly once: entries of
// order that aren't candidates (or repeat one too often) are dropped, and
// candidates the order left out are appended in their original order.
func completeOrder(candidates, order []*externalapi.DomainTransaction) []*externalapi.DomainTransaction {
	remaining := make(map[*externalapi.DomainTransaction]int, len(candidates))
	for _, tx := range candidates {
		remaining[tx]++
	}

	completed := make([]*externalapi.DomainTransaction, 0, len(candidates))
	for _, tx := range order {
		if remaining[tx] == 0 {
			continue
		}
		remaining[tx]--
		completed = append(completed, tx)
	}
	for _, tx := range candidates {
		if remaining[tx] == 0 {
			continue
		}
		remaining[tx]--
		completed = append(completed, tx)
	}
	return completed
}
