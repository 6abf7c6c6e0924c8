package utxo

import (
	"sort"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

type utxoOutpointEntryPair struct {
	outpoint externalapi.DomainOutpoint
	entry    externalapi.UTXOEntry
}

type utxoCollectionIterator struct {
	index    int
	pairs    []utxoOutpointEntryPair
	isClosed bool
}

// newCollectionIterator snapshots the collection, so modifying the set while
// iterating doesn't affect the iteration.
func newCollectionIterator(collection utxoCollection) externalapi.ReadOnlyUTXOSetIterator {
	pairs := make([]utxoOutpointEntryPair, 0, len(collection))
	for outpoint, entry := range collection {
		pairs = append(pairs, utxoOutpointEntryPair{
			outpoint: outpoint,
			entry:    entry,
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].outpoint.TransactionID != pairs[j].outpoint.TransactionID {
			return pairs[i].outpoint.TransactionID.Less(&pairs[j].outpoint.TransactionID)
		}
		return pairs[i].outpoint.Index < pairs[j].outpoint.Index
	})
	return &utxoCollectionIterator{index: -1, pairs: pairs}
}

func (u *utxoCollectionIterator) First() bool {
	if u.isClosed {
		return false
	}
	u.index = 0
	return len(u.pairs) > 0
}

func (u *utxoCollectionIterator) Next() bool {
	if u.isClosed {
		return false
	}
	u.index++
	return u.index < len(u.pairs)
}

func (u *utxoCollectionIterator) Get() (outpoint *externalapi.DomainOutpoint, utxoEntry externalapi.UTXOEntry, err error) {
	if u.isClosed {
		return nil, nil, errors.New("Attempt to get values from a closed iterator")
	}
	if u.index < 0 || u.index >= len(u.pairs) {
		return nil, nil, errors.Errorf("iterator index %d is out of range", u.index)
	}
	pair := u.pairs[u.index]
	return &pair.outpoint, pair.entry, nil
}

func (u *utxoCollectionIterator) Close() error {
	if u.isClosed {
		return errors.New("Attempt to close an already closed iterator")
	}
	u.isClosed = true
	u.pairs = nil
	return nil
}
