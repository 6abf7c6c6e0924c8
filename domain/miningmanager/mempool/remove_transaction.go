package mempool

import (
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
)

// RemoveTransaction removes transaction from the pool. Removing a
// transaction that isn't in the pool is a no-op.
func (mp *Mempool) RemoveTransaction(transaction *externalapi.DomainTransaction) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.removeTransaction(consensushashing.TransactionID(transaction))
}

// RemoveTransactions removes every one of transactions from the pool
func (mp *Mempool) RemoveTransactions(transactions []*externalapi.DomainTransaction) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, transaction := range transactions {
		mp.removeTransaction(consensushashing.TransactionID(transaction))
	}
}

// HandleNewBlock removes the transactions of a block that became the tip
// from the pool, along with every pool transaction that claims an outpoint
// the block spent. It returns the removed double spends.
func (mp *Mempool) HandleNewBlock(block *externalapi.DomainBlock) []*externalapi.DomainTransaction {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, transaction := range block.Transactions {
		mp.removeTransaction(consensushashing.TransactionID(transaction))
	}

	var doubleSpends []*externalapi.DomainTransaction
	for _, transaction := range block.Transactions {
		for _, input := range transaction.Inputs {
			for spenderID := range mp.spendersByPreviousOutpoint[input.PreviousOutpoint] {
				spenderID := spenderID
				doubleSpends = append(doubleSpends, mp.allTransactions[spenderID])
				mp.removeTransaction(&spenderID)
			}
		}
	}

	if len(doubleSpends) > 0 {
		log.Debugf("Removed %d transactions double spending block %s",
			len(doubleSpends), consensushashing.BlockHash(block))
	}
	return doubleSpends
}

// this function MUST be called with the mempool mutex locked for writes
func (mp *Mempool) removeTransaction(transactionID *externalapi.DomainTransactionID) {
	transaction, ok := mp.allTransactions[*transactionID]
	if !ok {
		return
	}

	delete(mp.allTransactions, *transactionID)
	for _, input := range transaction.Inputs {
		spenders := mp.spendersByPreviousOutpoint[input.PreviousOutpoint]
		delete(spenders, *transactionID)
		if len(spenders) == 0 {
			delete(mp.spendersByPreviousOutpoint, input.PreviousOutpoint)
		}
	}
	log.Tracef("Removed transaction %s from the mempool", transactionID)
}
