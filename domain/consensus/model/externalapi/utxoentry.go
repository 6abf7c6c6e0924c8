package externalapi

import "bytes"

// UTXOEntry houses details about an individual unspent transaction output:
// how much it pays and who may spend it. Entries are immutable once created,
// so they may be shared between UTXO sets.
type UTXOEntry interface {
	Amount() int64
	Owner() []byte
	IsCoinbase() bool
	Equal(other UTXOEntry) bool
}

type utxoEntry struct {
	amount     int64
	owner      []byte
	isCoinbase bool
}

// NewUTXOEntry creates a new UTXOEntry
func NewUTXOEntry(amount int64, owner []byte, isCoinbase bool) UTXOEntry {
	ownerClone := make([]byte, len(owner))
	copy(ownerClone, owner)

	return &utxoEntry{
		amount:     amount,
		owner:      ownerClone,
		isCoinbase: isCoinbase,
	}
}

func (u *utxoEntry) Amount() int64 {
	return u.amount
}

func (u *utxoEntry) Owner() []byte {
	return u.owner
}

func (u *utxoEntry) IsCoinbase() bool {
	return u.isCoinbase
}

// Equal returns whether entry equals to other
func (u *utxoEntry) Equal(other UTXOEntry) bool {
	if u == nil || other == nil {
		return u == nil && other == nil
	}

	return u.Amount() == other.Amount() &&
		bytes.Equal(u.Owner(), other.Owner()) &&
		u.IsCoinbase() == other.IsCoinbase()
}

// OutpointAndUTXOEntryPair is an outpoint along with its
// respective UTXO entry
type OutpointAndUTXOEntryPair struct {
	Outpoint  *DomainOutpoint
	UTXOEntry UTXOEntry
}
