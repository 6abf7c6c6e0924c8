package transactionvalidator

import (
	"math"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

func (v *transactionValidator) checkDoubleSpendsWithinTransaction(tx *externalapi.DomainTransaction) error {
	usedOutpoints := make(map[externalapi.DomainOutpoint]struct{}, len(tx.Inputs))
	for _, input := range tx.Inputs {
		if _, ok := usedOutpoints[input.PreviousOutpoint]; ok {
			return errors.Wrapf(ruleerrors.ErrSelfDoubleSpend, "transaction %s spends "+
				"outpoint %s more than once", consensushashing.TransactionID(tx), input.PreviousOutpoint)
		}
		usedOutpoints[input.PreviousOutpoint] = struct{}{}
	}
	return nil
}

// fetchSpentEntries returns the entries claimed by tx's inputs, in input
// order. The first unknown outpoint fails the whole transaction.
func (v *transactionValidator) fetchSpentEntries(tx *externalapi.DomainTransaction,
	utxoSet externalapi.ReadOnlyUTXOSet) ([]externalapi.UTXOEntry, error) {

	spentEntries := make([]externalapi.UTXOEntry, len(tx.Inputs))
	for i, input := range tx.Inputs {
		entry, ok := utxoSet.Get(&input.PreviousOutpoint)
		if !ok {
			return nil, ruleerrors.NewErrMissingTxOut([]*externalapi.DomainOutpoint{&input.PreviousOutpoint})
		}
		spentEntries[i] = entry
	}
	return spentEntries, nil
}

func (v *transactionValidator) validateSignatures(tx *externalapi.DomainTransaction,
	spentEntries []externalapi.UTXOEntry) error {

	for i, input := range tx.Inputs {
		signatureHash, err := consensushashing.CalculateSignatureHash(tx, i)
		if err != nil {
			return err
		}

		if !v.verifier.Verify(spentEntries[i].Owner(), signatureHash, input.Signature) {
			return errors.Wrapf(ruleerrors.ErrBadSignature, "signature of input %d which "+
				"references output %s doesn't verify against its owner %x",
				i, input.PreviousOutpoint, spentEntries[i].Owner())
		}
	}
	return nil
}

func (v *transactionValidator) checkTransactionInputAmounts(spentEntries []externalapi.UTXOEntry) (int64, error) {
	totalIn := int64(0)
	for _, entry := range spentEntries {
		amount := entry.Amount()
		if amount > 0 && totalIn > math.MaxInt64-amount {
			return 0, errors.Wrapf(ruleerrors.ErrValueOverflow, "total value of all transaction "+
				"inputs overflows after adding %d to %d", amount, totalIn)
		}
		totalIn += amount
	}
	return totalIn, nil
}

func (v *transactionValidator) checkTransactionOutputAmounts(tx *externalapi.DomainTransaction, totalIn int64) (int64, error) {
	totalOut := int64(0)
	for i, output := range tx.Outputs {
		if output.Value < 0 {
			return 0, errors.Wrapf(ruleerrors.ErrNegativeOutput, "output %d has negative "+
				"value %d", i, output.Value)
		}
		if totalOut > math.MaxInt64-output.Value {
			return 0, errors.Wrapf(ruleerrors.ErrValueOverflow, "total value of all transaction "+
				"outputs overflows after adding %d to %d", output.Value, totalOut)
		}
		totalOut += output.Value
	}

	// Ensure the transaction does not spend more than its inputs.
	if totalIn < totalOut {
		return 0, errors.Wrapf(ruleerrors.ErrInsufficientInput, "total value of all transaction inputs for "+
			"the transaction is %d which is less than the amount "+
			"spent of %d", totalIn, totalOut)
	}
	return totalOut, nil
}
