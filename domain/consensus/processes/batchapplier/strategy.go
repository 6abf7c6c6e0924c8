package batchapplier

import (
	"sort"

	"github.com/kaspanet/utxotree/domain/consensus/model"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// Strategy decides the order in which a batch's candidates are tried.
//
// Order returns candidates in the order they should be tried. It must not
// modify utxoSet. Candidates missing from the returned order are tried
// last, in their original order.
type Strategy interface {
	Name() string
	Order(candidates []*externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet,
		validator model.TransactionValidator) []*externalapi.DomainTransaction
}

const (
	orderedAcceptanceName = "ordered"
	feeMaximizingName     = "fee"
	exactMaxWeightName    = "exact"
)

// StrategyNames lists the names StrategyByName accepts
var StrategyNames = []string{orderedAcceptanceName, feeMaximizingName, exactMaxWeightName}

// StrategyByName returns the strategy called name
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case orderedAcceptanceName:
		return OrderedAcceptance, nil
	case feeMaximizingName:
		return FeeMaximizing, nil
	case exactMaxWeightName:
		return NewExactMaxWeight(), nil
	default:
		return nil, errors.Errorf("unknown selection strategy %q, expected one of %v", name, StrategyNames)
	}
}

type orderedAcceptance struct{}

// OrderedAcceptance tries candidates in the order they were given
var OrderedAcceptance Strategy = orderedAcceptance{}

func (orderedAcceptance) Name() string {
	return orderedAcceptanceName
}

func (orderedAcceptance) Order(candidates []*externalapi.DomainTransaction, _ externalapi.ReadOnlyUTXOSet,
	_ model.TransactionValidator) []*externalapi.DomainTransaction {

	return candidates
}

type feeMaximizing struct{}

// FeeMaximizing tries candidates by descending fee, breaking ties by
// ascending transaction ID. Fees of candidates spending outputs created
// within the same batch are measured as if those outputs already existed.
//
// This is a greedy approximation of the maximum fee conflict-free subset,
// which is a maximum weight independent set problem. It is not optimal in
// general: a single high fee transaction may block two conflicting
// transactions whose combined fee is higher, and a high fee transaction
// tried before the transaction whose output it spends is rejected.
// ExactMaxWeight finds the optimum for small batches.
var FeeMaximizing Strategy = feeMaximizing{}

func (feeMaximizing) Name() string {
	return feeMaximizingName
}

func (feeMaximizing) Order(candidates []*externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet,
	validator model.TransactionValidator) []*externalapi.DomainTransaction {

	candidateTxs := newCandidateTxs(candidates, utxoSet, validator)
	sort.SliceStable(candidateTxs, func(i, j int) bool {
		return candidateTxs[i].isBetterThan(candidateTxs[j])
	})
	return transactionsOf(candidateTxs)
}
