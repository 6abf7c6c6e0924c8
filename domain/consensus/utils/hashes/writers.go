package hashes

import (
	"encoding/binary"
	"hash"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const (
	transactionIDDomain          = "TransactionID"
	transactionSigningHashDomain = "TransactionSigningHash"
	blockDomain                  = "BlockHash"
)

// HashWriter is used to incrementally hash data without concatenating all of the data to a single buffer
// it exposes an io.Writer api and a Finalize function to get the resulting hash.
// The used hash function is blake2b.
// This can only be created via one of the domain separated constructors
type HashWriter struct {
	hash.Hash
}

// InfallibleWrite is just like write but doesn't return anything
func (h HashWriter) InfallibleWrite(p []byte) {
	// This write can never return an error, this is part of the hash.Hash interface contract.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// WriteUint32 writes the little endian representation of value
func (h HashWriter) WriteUint32(value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	h.InfallibleWrite(buf[:])
}

// WriteUint64 writes the little endian representation of value
func (h HashWriter) WriteUint64(value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	h.InfallibleWrite(buf[:])
}

// WriteInt64 writes the little endian two's complement representation of value
func (h HashWriter) WriteInt64(value int64) {
	h.WriteUint64(uint64(value))
}

// WriteVarBytes writes the length of data followed by data itself, so that
// consecutive variable-length fields can't be confused with one another.
func (h HashWriter) WriteVarBytes(data []byte) {
	h.WriteUint64(uint64(len(data)))
	h.InfallibleWrite(data)
}

// WriteHash writes the bytes of the given hash
func (h HashWriter) WriteHash(hash *externalapi.DomainHash) {
	h.InfallibleWrite(hash.ByteSlice())
}

// Finalize returns the resulting hash
func (h HashWriter) Finalize() *externalapi.DomainHash {
	var sum [externalapi.DomainHashSize]byte
	// This should prevent `Sum` for allocating an output buffer, by using the DomainHash buffer. we still copy because we don't want to rely on that.
	copy(sum[:], h.Sum(sum[:0]))
	return externalapi.NewDomainHashFromByteArray(&sum)
}

func newBlake2bWriter(domain string) HashWriter {
	blake, err := blake2b.New256([]byte(domain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", domain))
	}
	return HashWriter{blake}
}

// NewTransactionIDWriter returns a new HashWriter used for transaction IDs
func NewTransactionIDWriter() HashWriter {
	return newBlake2bWriter(transactionIDDomain)
}

// NewTransactionSigningHashWriter returns a new HashWriter used for signing on a transaction
func NewTransactionSigningHashWriter() HashWriter {
	return newBlake2bWriter(transactionSigningHashDomain)
}

// NewBlockHashWriter returns a new HashWriter used for hashing blocks
func NewBlockHashWriter() HashWriter {
	return newBlake2bWriter(blockDomain)
}
