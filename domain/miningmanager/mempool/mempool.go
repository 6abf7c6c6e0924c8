package mempool

import (
	"sort"
	"sync"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

type idSet map[externalapi.DomainTransactionID]struct{}

// Mempool maintains a set of known transactions that are intended to be
// mined into new blocks, keyed by transaction ID. Transactions aren't
// validated on insertion, and conflicting transactions may coexist.
//
// Mempool is safe for concurrent use.
type Mempool struct {
	mtx    sync.RWMutex
	config *Config

	allTransactions map[externalapi.DomainTransactionID]*externalapi.DomainTransaction

	// spendersByPreviousOutpoint maps every outpoint claimed by a pool
	// transaction to the IDs of the transactions claiming it
	spendersByPreviousOutpoint map[externalapi.DomainOutpoint]idSet
}

// New creates a new mempool
func New(config *Config) *Mempool {
	return &Mempool{
		config:                     config,
		allTransactions:            make(map[externalapi.DomainTransactionID]*externalapi.DomainTransaction),
		spendersByPreviousOutpoint: make(map[externalapi.DomainOutpoint]idSet),
	}
}

// AddTransaction adds transaction to the pool. It fails with
// ErrTransactionAlreadyInPool if a transaction with the same ID is already
// there, and with ErrMempoolFull if the pool is full.
func (mp *Mempool) AddTransaction(transaction *externalapi.DomainTransaction) error {
	transactionID := consensushashing.TransactionID(transaction)

	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if _, ok := mp.allTransactions[*transactionID]; ok {
		return errors.Wrapf(ErrTransactionAlreadyInPool, "transaction %s", transactionID)
	}
	if len(mp.allTransactions) >= mp.config.MaximumTransactionCount {
		return errors.Wrapf(ErrMempoolFull, "couldn't add transaction %s: the mempool already holds %d transactions",
			transactionID, len(mp.allTransactions))
	}

	mp.allTransactions[*transactionID] = transaction
	for _, input := range transaction.Inputs {
		spenders, ok := mp.spendersByPreviousOutpoint[input.PreviousOutpoint]
		if !ok {
			spenders = idSet{}
			mp.spendersByPreviousOutpoint[input.PreviousOutpoint] = spenders
		}
		spenders[*transactionID] = struct{}{}
	}

	log.Debugf("Added transaction %s to the mempool (pool size: %d)", transactionID, len(mp.allTransactions))
	return nil
}

// HasTransaction returns whether a transaction with the given ID is in the
// pool
func (mp *Mempool) HasTransaction(transactionID *externalapi.DomainTransactionID) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	_, ok := mp.allTransactions[*transactionID]
	return ok
}

// GetTransaction returns the transaction with the given ID, if it's in the
// pool
func (mp *Mempool) GetTransaction(transactionID *externalapi.DomainTransactionID) (*externalapi.DomainTransaction, bool) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	transaction, ok := mp.allTransactions[*transactionID]
	return transaction, ok
}

// AllTransactions returns every transaction in the pool, ordered by ID
func (mp *Mempool) AllTransactions() []*externalapi.DomainTransaction {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	ids := make([]externalapi.DomainTransactionID, 0, len(mp.allTransactions))
	for id := range mp.allTransactions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].Less(&ids[j])
	})

	transactions := make([]*externalapi.DomainTransaction, len(ids))
	for i := range ids {
		transactions[i] = mp.allTransactions[ids[i]]
	}
	return transactions
}

// Len returns the number of transactions in the pool
func (mp *Mempool) Len() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	return len(mp.allTransactions)
}
