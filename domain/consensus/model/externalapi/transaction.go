package externalapi

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// DomainTransaction represents a ledger transaction. A transaction with no
// inputs is a coinbase transaction.
type DomainTransaction struct {
	Inputs  []*DomainTransactionInput
	Outputs []*DomainTransactionOutput
	Payload []byte
}

// IsCoinbase returns whether the transaction mints new value, that is,
// whether it has no inputs.
func (tx *DomainTransaction) IsCoinbase() bool {
	return len(tx.Inputs) == 0
}

// Clone returns a clone of DomainTransaction
func (tx *DomainTransaction) Clone() *DomainTransaction {
	inputsClone := make([]*DomainTransactionInput, len(tx.Inputs))
	for i, input := range tx.Inputs {
		inputsClone[i] = input.Clone()
	}

	outputsClone := make([]*DomainTransactionOutput, len(tx.Outputs))
	for i, output := range tx.Outputs {
		outputsClone[i] = output.Clone()
	}

	var payloadClone []byte
	if tx.Payload != nil {
		payloadClone = make([]byte, len(tx.Payload))
		copy(payloadClone, tx.Payload)
	}

	return &DomainTransaction{
		Inputs:  inputsClone,
		Outputs: outputsClone,
		Payload: payloadClone,
	}
}

// If this doesn't compile, it means the type definition has been changed, so it's
// an indication to update Equal and Clone accordingly.
var _ = DomainTransaction{[]*DomainTransactionInput{}, []*DomainTransactionOutput{}, []byte{}}

// Equal returns whether tx equals to other
func (tx *DomainTransaction) Equal(other *DomainTransaction) bool {
	if tx == nil || other == nil {
		return tx == other
	}

	if len(tx.Inputs) != len(other.Inputs) {
		return false
	}
	for i, input := range tx.Inputs {
		if !input.Equal(other.Inputs[i]) {
			return false
		}
	}

	if len(tx.Outputs) != len(other.Outputs) {
		return false
	}
	for i, output := range tx.Outputs {
		if !output.Equal(other.Outputs[i]) {
			return false
		}
	}

	return bytes.Equal(tx.Payload, other.Payload)
}

// DomainTransactionInput represents a transaction input: the outpoint it
// claims and a signature by the owner of that outpoint.
type DomainTransactionInput struct {
	PreviousOutpoint DomainOutpoint
	Signature        []byte
}

// Clone returns a clone of DomainTransactionInput
func (input *DomainTransactionInput) Clone() *DomainTransactionInput {
	signatureClone := make([]byte, len(input.Signature))
	copy(signatureClone, input.Signature)

	return &DomainTransactionInput{
		PreviousOutpoint: input.PreviousOutpoint,
		Signature:        signatureClone,
	}
}

// If this doesn't compile, it means the type definition has been changed, so it's
// an indication to update Equal and Clone accordingly.
var _ = &DomainTransactionInput{DomainOutpoint{}, []byte{}}

// Equal returns whether input equals to other
func (input *DomainTransactionInput) Equal(other *DomainTransactionInput) bool {
	if input == nil || other == nil {
		return input == other
	}

	return input.PreviousOutpoint == other.PreviousOutpoint &&
		bytes.Equal(input.Signature, other.Signature)
}

// DomainOutpoint identifies a claimable output: the ID of the transaction
// that created it and the output's position in that transaction.
type DomainOutpoint struct {
	TransactionID DomainTransactionID
	Index         uint32
}

// NewDomainOutpoint instantiates a new DomainOutpoint with the given id and index
func NewDomainOutpoint(id *DomainTransactionID, index uint32) *DomainOutpoint {
	return &DomainOutpoint{
		TransactionID: *id,
		Index:         index,
	}
}

// String stringifies an outpoint.
func (op DomainOutpoint) String() string {
	return fmt.Sprintf("(%s: %d)", op.TransactionID, op.Index)
}

// DomainTransactionOutput represents a transaction output: an amount and the
// public key of the address allowed to spend it.
type DomainTransactionOutput struct {
	Value int64
	Owner []byte
}

// Clone returns a clone of DomainTransactionOutput
func (output *DomainTransactionOutput) Clone() *DomainTransactionOutput {
	ownerClone := make([]byte, len(output.Owner))
	copy(ownerClone, output.Owner)

	return &DomainTransactionOutput{
		Value: output.Value,
		Owner: ownerClone,
	}
}

// If this doesn't compile, it means the type definition has been changed, so it's
// an indication to update Equal and Clone accordingly.
var _ = &DomainTransactionOutput{0, []byte{}}

// Equal returns whether output equals to other
func (output *DomainTransactionOutput) Equal(other *DomainTransactionOutput) bool {
	if output == nil || other == nil {
		return output == other
	}

	return output.Value == other.Value && bytes.Equal(output.Owner, other.Owner)
}

// DomainTransactionID represents the ID of a transaction
type DomainTransactionID DomainHash

// NewDomainTransactionIDFromByteArray constructs a new TransactionID out of a byte array
func NewDomainTransactionIDFromByteArray(transactionIDBytes *[DomainHashSize]byte) *DomainTransactionID {
	return (*DomainTransactionID)(NewDomainHashFromByteArray(transactionIDBytes))
}

// String stringifies a transaction ID.
func (id DomainTransactionID) String() string {
	return DomainHash(id).String()
}

// ByteSlice returns the bytes in this transactionID represented as a byte slice.
func (id *DomainTransactionID) ByteSlice() []byte {
	return (*DomainHash)(id).ByteSlice()
}

// Equal returns whether id equals to other
func (id *DomainTransactionID) Equal(other *DomainTransactionID) bool {
	return (*DomainHash)(id).Equal((*DomainHash)(other))
}

// Less returns true if id is less than other
func (id *DomainTransactionID) Less(other *DomainTransactionID) bool {
	return (*DomainHash)(id).Less((*DomainHash)(other))
}

// ShortString returns the first bytes of the ID, for log lines.
func (id DomainTransactionID) ShortString() string {
	hashArray := DomainHash(id).hashArray
	return hex.EncodeToString(hashArray[:4])
}
