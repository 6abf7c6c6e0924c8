package testutils

import (
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/utxo"
)

// Output is a shorthand for building a transaction output
func Output(value int64, owner []byte) *externalapi.DomainTransactionOutput {
	return &externalapi.DomainTransactionOutput{Value: value, Owner: owner}
}

// Outpoint returns the outpoint of output index of tx
func Outpoint(tx *externalapi.DomainTransaction, index uint32) *externalapi.DomainOutpoint {
	return externalapi.NewDomainOutpoint(consensushashing.TransactionID(tx), index)
}

// CoinbaseTransaction returns a coinbase paying value to owner. Different
// payloads make otherwise identical coinbases distinct.
func CoinbaseTransaction(owner []byte, value int64, payload []byte) *externalapi.DomainTransaction {
	return &externalapi.DomainTransaction{
		Outputs: []*externalapi.DomainTransactionOutput{Output(value, owner)},
		Payload: payload,
	}
}

// SpendingTransaction builds a transaction claiming outpoints and creating
// outputs, with every input signed by signer
func SpendingTransaction(signer Signer, outpoints []*externalapi.DomainOutpoint,
	outputs ...*externalapi.DomainTransactionOutput) (*externalapi.DomainTransaction, error) {

	tx := &externalapi.DomainTransaction{
		Inputs:  make([]*externalapi.DomainTransactionInput, len(outpoints)),
		Outputs: outputs,
	}
	for i, outpoint := range outpoints {
		tx.Inputs[i] = &externalapi.DomainTransactionInput{PreviousOutpoint: *outpoint}
	}

	err := SignAllInputs(tx, signer)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// UTXOSetWith returns a UTXO set holding the coinbase outputs of coinbases
func UTXOSetWith(coinbases ...*externalapi.DomainTransaction) *utxo.UTXOSet {
	set := utxo.NewUTXOSet()
	for _, coinbase := range coinbases {
		err := set.AddCoinbaseOutput(coinbase)
		if err != nil {
			panic(err)
		}
	}
	return set
}
