package externalapi

// ReadOnlyUTXOSet is a view of a UTXO set that cannot be used to modify it.
// Block snapshots are handed out to callers only through this interface.
type ReadOnlyUTXOSet interface {
	Get(outpoint *DomainOutpoint) (UTXOEntry, bool)
	Contains(outpoint *DomainOutpoint) bool
	Len() int
	Iterator() ReadOnlyUTXOSetIterator

	// Commitment returns a hash committing to the full content of the set.
	// Sets with equal content have equal commitments.
	Commitment() *DomainHash
}

// ReadOnlyUTXOSetIterator is an iterator over all entries in a
// ReadOnlyUTXOSet
type ReadOnlyUTXOSetIterator interface {
	First() bool
	Next() bool
	Get() (outpoint *DomainOutpoint, utxoEntry UTXOEntry, err error)
	Close() error
}
