package utxo

import "github.com/kaspanet/utxotree/domain/consensus/model/externalapi"

type readOnlyUTXOSet struct {
	set *UTXOSet
}

func (r readOnlyUTXOSet) Get(outpoint *externalapi.DomainOutpoint) (externalapi.UTXOEntry, bool) {
	return r.set.Get(outpoint)
}

func (r readOnlyUTXOSet) Contains(outpoint *externalapi.DomainOutpoint) bool {
	return r.set.Contains(outpoint)
}

func (r readOnlyUTXOSet) Len() int {
	return r.set.Len()
}

func (r readOnlyUTXOSet) Iterator() externalapi.ReadOnlyUTXOSetIterator {
	return r.set.Iterator()
}

func (r readOnlyUTXOSet) Commitment() *externalapi.DomainHash {
	return r.set.Commitment()
}

func (r readOnlyUTXOSet) String() string {
	return r.set.String()
}

// CloneReadOnly returns a modifiable copy of a read-only set. This is how a
// block's snapshot is extended into its child's.
func CloneReadOnly(readOnly externalapi.ReadOnlyUTXOSet) *UTXOSet {
	if r, ok := readOnly.(readOnlyUTXOSet); ok {
		return r.set.Clone()
	}

	clone := NewUTXOSet()
	iterator := readOnly.Iterator()
	defer iterator.Close()
	for ok := iterator.First(); ok; ok = iterator.Next() {
		outpoint, entry, err := iterator.Get()
		if err != nil {
			// The iterator was created above and isn't closed yet
			panic(err)
		}
		clone.Insert(outpoint, entry)
	}
	return clone
}
