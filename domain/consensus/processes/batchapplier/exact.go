package batchapplier

import (
	"github.com/kaspanet/utxotree/domain/consensus/model"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/utxo"
)

// DefaultMaxExactCandidates is the largest batch ExactMaxWeight solves
// exactly by default
const DefaultMaxExactCandidates = 20

// ExactMaxWeight finds the conflict-free subset of candidates with the
// maximum total fee, by branch and bound over include/exclude decisions.
// Batches with more than MaxCandidates candidates are ordered with
// FeeMaximizing instead, since the search is exponential in the batch size.
//
// Among subsets with the same total fee, the one found first is kept, which
// prefers including earlier candidates.
type ExactMaxWeight struct {
	MaxCandidates int
}

// NewExactMaxWeight returns an ExactMaxWeight with the default candidate limit
func NewExactMaxWeight() *ExactMaxWeight {
	return &ExactMaxWeight{MaxCandidates: DefaultMaxExactCandidates}
}

// Name implements Strategy
func (e *ExactMaxWeight) Name() string {
	return exactMaxWeightName
}

// Order implements Strategy. The chosen subset comes first, ordered so that
// each transaction follows those it spends from. The rest follow in their
// original order.
func (e *ExactMaxWeight) Order(candidates []*externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet,
	validator model.TransactionValidator) []*externalapi.DomainTransaction {

	if len(candidates) > e.MaxCandidates {
		log.Debugf("%d candidates exceed the exact search limit of %d, ordering by fee instead",
			len(candidates), e.MaxCandidates)
		return FeeMaximizing.Order(candidates, utxoSet, validator)
	}

	searchable := make([]*candidateTx, 0, len(candidates))
	seen := make(map[externalapi.DomainTransactionID]struct{}, len(candidates))
	for _, candidate := range newCandidateTxs(candidates, utxoSet, validator) {
		if !candidate.isValid {
			continue
		}
		if _, ok := seen[*candidate.id]; ok {
			continue
		}
		seen[*candidate.id] = struct{}{}
		searchable = append(searchable, candidate)
	}

	search := newExactSearch(dependencyOrder(searchable), utxo.CloneReadOnly(utxoSet))
	search.run(0)
	log.Debugf("Exact search visited %d nodes and found a subset of %d candidates with total fee %d",
		search.visited, len(search.bestSubset()), search.bestFee)

	return transactionsOf(search.bestSubset())
}

type exactSearch struct {
	candidates []*candidateTx

	// remainingFees[i] is the total fee of candidates[i:], an upper bound
	// on what any decision on them can add
	remainingFees []int64

	workingSet *utxo.UTXOSet
	isChosen   []bool
	currentFee int64

	hasBest bool
	best    []bool
	bestFee int64
	visited int
}

func newExactSearch(candidates []*candidateTx, workingSet *utxo.UTXOSet) *exactSearch {
	remainingFees := make([]int64, len(candidates)+1)
	for i := len(candidates) - 1; i >= 0; i-- {
		remainingFees[i] = remainingFees[i+1] + candidates[i].fee
	}

	return &exactSearch{
		candidates:    candidates,
		remainingFees: remainingFees,
		workingSet:    workingSet,
		isChosen:      make([]bool, len(candidates)),
		best:          make([]bool, len(candidates)),
	}
}

func (s *exactSearch) run(i int) {
	s.visited++
	if s.hasBest && s.currentFee+s.remainingFees[i] <= s.bestFee {
		return
	}
	if i == len(s.candidates) {
		s.hasBest = true
		s.bestFee = s.currentFee
		copy(s.best, s.isChosen)
		return
	}

	candidate := s.candidates[i]
	spentEntries, err := s.workingSet.AddTransaction(candidate.tx)
	if err == nil {
		s.isChosen[i] = true
		s.currentFee += candidate.fee
		s.run(i + 1)
		s.currentFee -= candidate.fee
		s.isChosen[i] = false

		err = s.workingSet.UnwindTransaction(candidate.tx, spentEntries)
		if err != nil {
			panic(err)
		}
	}

	s.run(i + 1)
}

func (s *exactSearch) bestSubset() []*candidateTx {
	subset := make([]*candidateTx, 0, len(s.candidates))
	for i, candidate := range s.candidates {
		if s.best[i] {
			subset = append(subset, candidate)
		}
	}
	return subset
}
