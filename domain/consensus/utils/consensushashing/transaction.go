package consensushashing

import (
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

// TransactionID generates the ID of the given transaction. Signatures are
// part of the ID, so an ID commits to the fully signed transaction.
func TransactionID(tx *externalapi.DomainTransaction) *externalapi.DomainTransactionID {
	writer := hashes.NewTransactionIDWriter()
	writer.WriteUint64(uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		writeOutpoint(writer, &input.PreviousOutpoint)
		writer.WriteVarBytes(input.Signature)
	}
	writeOutputs(writer, tx.Outputs)
	writer.WriteVarBytes(tx.Payload)

	return (*externalapi.DomainTransactionID)(writer.Finalize())
}

// TransactionIDs returns the IDs of the given transactions, in order
func TransactionIDs(txs []*externalapi.DomainTransaction) []*externalapi.DomainTransactionID {
	ids := make([]*externalapi.DomainTransactionID, len(txs))
	for i, tx := range txs {
		ids[i] = TransactionID(tx)
	}
	return ids
}

// CalculateSignatureHash returns the payload the owner of the outpoint
// claimed by input inputIndex must sign. It commits to every outpoint the
// transaction claims, to every output and to the payload, but to none of the
// signature fields, so that inputs can be signed independently and in any order.
func CalculateSignatureHash(tx *externalapi.DomainTransaction, inputIndex int) (*externalapi.DomainHash, error) {
	if inputIndex < 0 || inputIndex >= len(tx.Inputs) {
		return nil, errors.Errorf("input index %d is out of range for a transaction with %d inputs",
			inputIndex, len(tx.Inputs))
	}

	writer := hashes.NewTransactionSigningHashWriter()
	writer.WriteUint32(uint32(inputIndex))
	writer.WriteUint64(uint64(len(tx.Inputs)))
	for _, input := range tx.Inputs {
		writeOutpoint(writer, &input.PreviousOutpoint)
	}
	writeOutputs(writer, tx.Outputs)
	writer.WriteVarBytes(tx.Payload)

	return writer.Finalize(), nil
}

func writeOutpoint(writer hashes.HashWriter, outpoint *externalapi.DomainOutpoint) {
	writer.InfallibleWrite(outpoint.TransactionID.ByteSlice())
	writer.WriteUint32(outpoint.Index)
}

func writeOutputs(writer hashes.HashWriter, outputs []*externalapi.DomainTransactionOutput) {
	writer.WriteUint64(uint64(len(outputs)))
	for _, output := range outputs {
		writer.WriteInt64(output.Value)
		writer.WriteVarBytes(output.Owner)
	}
}
