package utxo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/multiset"
	"github.com/pkg/errors"
)

// utxoCollection represents a set of UTXOs indexed by their outpoints
type utxoCollection map[externalapi.DomainOutpoint]externalapi.UTXOEntry

// UTXOSet maps outpoints to the unspent outputs they identify, and keeps a
// multiset commitment over its content up to date on every modification.
//
// A UTXOSet is not safe for concurrent modification. Snapshots shared between
// goroutines are handed out via ReadOnly, and modified only after Clone.
type UTXOSet struct {
	collection utxoCollection
	multiset   *multiset.Multiset
}

// NewUTXOSet returns a new, empty UTXOSet
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{
		collection: utxoCollection{},
		multiset:   multiset.New(),
	}
}

// Get returns the entry stored for outpoint, if any
func (u *UTXOSet) Get(outpoint *externalapi.DomainOutpoint) (externalapi.UTXOEntry, bool) {
	entry, ok := u.collection[*outpoint]
	return entry, ok
}

// Contains returns whether outpoint is in the set
func (u *UTXOSet) Contains(outpoint *externalapi.DomainOutpoint) bool {
	_, ok := u.collection[*outpoint]
	return ok
}

// Len returns the number of entries in the set
func (u *UTXOSet) Len() int {
	return len(u.collection)
}

// Insert adds entry under outpoint, replacing any previous entry
func (u *UTXOSet) Insert(outpoint *externalapi.DomainOutpoint, entry externalapi.UTXOEntry) {
	if previous, ok := u.collection[*outpoint]; ok {
		u.multiset.Remove(serializeUTXO(outpoint, previous))
	}
	u.collection[*outpoint] = entry
	u.multiset.Add(serializeUTXO(outpoint, entry))
}

// Remove deletes outpoint from the set. Removing a missing outpoint is a no-op.
func (u *UTXOSet) Remove(outpoint *externalapi.DomainOutpoint) {
	entry, ok := u.collection[*outpoint]
	if !ok {
		return
	}
	delete(u.collection, *outpoint)
	u.multiset.Remove(serializeUTXO(outpoint, entry))
}

// Clone returns a copy of the set that shares no mutable state with u.
// Entries themselves are immutable, so they are shared.
func (u *UTXOSet) Clone() *UTXOSet {
	clone := make(utxoCollection, len(u.collection))
	for outpoint, entry := range u.collection {
		clone[outpoint] = entry
	}

	return &UTXOSet{
		collection: clone,
		multiset:   u.multiset.Clone(),
	}
}

// Commitment returns a hash committing to the content of the set
func (u *UTXOSet) Commitment() *externalapi.DomainHash {
	return u.multiset.Hash()
}

// Iterator returns an iterator over the set's entries in outpoint order
func (u *UTXOSet) Iterator() externalapi.ReadOnlyUTXOSetIterator {
	return newCollectionIterator(u.collection)
}

// ReadOnly returns a view of u that cannot be used to modify it
func (u *UTXOSet) ReadOnly() externalapi.ReadOnlyUTXOSet {
	return readOnlyUTXOSet{set: u}
}

// AddTransaction folds tx into the set: every outpoint it claims is removed
// and every output it creates is inserted. It fails without modifying the set
// if any claimed outpoint is missing or claimed twice. It does not validate
// signatures or values; that is the transaction validator's job.
//
// The spent entries are returned, in input order, so that the application
// can be reverted with UnwindTransaction.
func (u *UTXOSet) AddTransaction(tx *externalapi.DomainTransaction) ([]externalapi.UTXOEntry, error) {
	spentEntries := make([]externalapi.UTXOEntry, len(tx.Inputs))
	claimed := make(map[externalapi.DomainOutpoint]struct{}, len(tx.Inputs))
	for i, input := range tx.Inputs {
		if _, ok := claimed[input.PreviousOutpoint]; ok {
			return nil, errors.Wrapf(ruleerrors.ErrSelfDoubleSpend,
				"outpoint %s is claimed more than once", input.PreviousOutpoint)
		}
		claimed[input.PreviousOutpoint] = struct{}{}

		entry, ok := u.Get(&input.PreviousOutpoint)
		if !ok {
			return nil, ruleerrors.NewErrMissingTxOut([]*externalapi.DomainOutpoint{&input.PreviousOutpoint})
		}
		spentEntries[i] = entry
	}

	for _, input := range tx.Inputs {
		u.Remove(&input.PreviousOutpoint)
	}
	u.AddTransactionOutputs(tx)

	return spentEntries, nil
}

// UnwindTransaction reverts a previous AddTransaction of tx, given the
// entries it returned.
func (u *UTXOSet) UnwindTransaction(tx *externalapi.DomainTransaction, spentEntries []externalapi.UTXOEntry) error {
	if len(spentEntries) != len(tx.Inputs) {
		return errors.Errorf("got %d spent entries for a transaction with %d inputs",
			len(spentEntries), len(tx.Inputs))
	}

	transactionID := consensushashing.TransactionID(tx)
	for i := range tx.Outputs {
		u.Remove(externalapi.NewDomainOutpoint(transactionID, uint32(i)))
	}
	for i, input := range tx.Inputs {
		u.Insert(&input.PreviousOutpoint, spentEntries[i])
	}
	return nil
}

// AddCoinbaseOutput credits the first output of coinbase to the set. A
// coinbase whose output is already in the set is rejected, since crediting it
// would overwrite an existing entry.
func (u *UTXOSet) AddCoinbaseOutput(coinbase *externalapi.DomainTransaction) error {
	if len(coinbase.Outputs) == 0 || coinbase.Outputs[0] == nil {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction, "coinbase has no outputs")
	}
	output := coinbase.Outputs[0]
	outpoint := externalapi.NewDomainOutpoint(consensushashing.TransactionID(coinbase), 0)
	if u.Contains(outpoint) {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction,
			"coinbase output %s is already unspent", outpoint)
	}
	u.Insert(outpoint, externalapi.NewUTXOEntry(output.Value, output.Owner, true))
	return nil
}

// AddTransactionOutputs inserts every output of tx without touching the
// outpoints it claims
func (u *UTXOSet) AddTransactionOutputs(tx *externalapi.DomainTransaction) {
	transactionID := consensushashing.TransactionID(tx)
	isCoinbase := tx.IsCoinbase()
	for i, output := range tx.Outputs {
		u.Insert(externalapi.NewDomainOutpoint(transactionID, uint32(i)),
			externalapi.NewUTXOEntry(output.Value, output.Owner, isCoinbase))
	}
}

// String returns the set's content as a deterministic, human-readable string
func (u *UTXOSet) String() string {
	utxoStrings := make([]string, 0, len(u.collection))
	for outpoint, entry := range u.collection {
		utxoStrings = append(utxoStrings, fmt.Sprintf("(%s, %d) => %d",
			outpoint.TransactionID, outpoint.Index, entry.Amount()))
	}

	// Sort strings for determinism.
	sort.Strings(utxoStrings)

	return fmt.Sprintf("[ %s ]", strings.Join(utxoStrings, ", "))
}

// Equal returns whether u and other hold exactly the same entries
func Equal(u, other externalapi.ReadOnlyUTXOSet) bool {
	if u.Len() != other.Len() {
		return false
	}

	iterator := u.Iterator()
	defer iterator.Close()
	for ok := iterator.First(); ok; ok = iterator.Next() {
		outpoint, entry, err := iterator.Get()
		if err != nil {
			return false
		}
		otherEntry, found := other.Get(outpoint)
		if !found || !entry.Equal(otherEntry) {
			return false
		}
	}
	return true
}

func serializeUTXO(outpoint *externalapi.DomainOutpoint, entry externalapi.UTXOEntry) []byte {
	writer := newUTXOSerializer()
	writer.writeOutpoint(outpoint)
	writer.writeEntry(entry)
	return writer.bytes()
}
