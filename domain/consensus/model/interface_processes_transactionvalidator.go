package model

import "github.com/kaspanet/utxotree/domain/consensus/model/externalapi"

// TransactionValidator exposes a set of validation classes, after which
// it's possible to determine whether a transaction is valid
type TransactionValidator interface {
	ValidateTransaction(tx *externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet) (fee int64, err error)
	IsValid(tx *externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet) bool
}
