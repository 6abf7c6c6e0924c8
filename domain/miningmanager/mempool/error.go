package mempool

import "github.com/pkg/errors"

var (
	// ErrTransactionAlreadyInPool indicates a transaction with the same ID
	// is already in the mempool
	ErrTransactionAlreadyInPool = errors.New("transaction already in the mempool")

	// ErrMempoolFull indicates the mempool holds the maximum number of
	// transactions its configuration allows
	ErrMempoolFull = errors.New("the mempool is full")
)
