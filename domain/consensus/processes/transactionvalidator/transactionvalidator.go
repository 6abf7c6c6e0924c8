package transactionvalidator

import (
	"github.com/kaspanet/utxotree/domain/consensus/model"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/txsign"
)

// transactionValidator exposes a set of validation classes, after which
// it's possible to determine whether either a transaction is valid
type transactionValidator struct {
	verifier txsign.Verifier
}

// New instantiates a new TransactionValidator that checks input signatures
// with verifier
func New(verifier txsign.Verifier) model.TransactionValidator {
	return &transactionValidator{
		verifier: verifier,
	}
}

// ValidateTransaction checks tx against utxoSet and returns the fee it pays.
// Checks run in the following order and the first failure is returned:
// self double-spend, unknown outputs, signatures, negative outputs and
// finally the balance of inputs against outputs.
//
// A coinbase transaction is always valid and pays no fee. utxoSet is never
// modified.
func (v *transactionValidator) ValidateTransaction(tx *externalapi.DomainTransaction,
	utxoSet externalapi.ReadOnlyUTXOSet) (int64, error) {

	if tx.IsCoinbase() {
		return 0, nil
	}

	err := v.checkDoubleSpendsWithinTransaction(tx)
	if err != nil {
		return 0, err
	}

	spentEntries, err := v.fetchSpentEntries(tx, utxoSet)
	if err != nil {
		return 0, err
	}

	err = v.validateSignatures(tx, spentEntries)
	if err != nil {
		return 0, err
	}

	totalIn, err := v.checkTransactionInputAmounts(spentEntries)
	if err != nil {
		return 0, err
	}

	totalOut, err := v.checkTransactionOutputAmounts(tx, totalIn)
	if err != nil {
		return 0, err
	}

	return totalIn - totalOut, nil
}

// IsValid returns whether ValidateTransaction accepts tx
func (v *transactionValidator) IsValid(tx *externalapi.DomainTransaction, utxoSet externalapi.ReadOnlyUTXOSet) bool {
	_, err := v.ValidateTransaction(tx, utxoSet)
	return err == nil
}
