package multiset

import (
	"github.com/kaspanet/go-muhash"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
)

// Multiset is a rolling hash of a multiset of byte strings. Elements can be
// added and removed in any order; the resulting hash only depends on the
// content of the multiset.
type Multiset struct {
	ms *muhash.MuHash
}

// New returns a new, empty Multiset
func New() *Multiset {
	return &Multiset{ms: muhash.NewMuHash()}
}

// Add adds data to the multiset
func (m *Multiset) Add(data []byte) {
	m.ms.Add(data)
}

// Remove removes data from the multiset
func (m *Multiset) Remove(data []byte) {
	m.ms.Remove(data)
}

// Hash returns the hash committing to the current content of the multiset.
// Finalizing normalizes the underlying MuHash in place, so a copy is
// finalized and m may be hashed and cloned concurrently.
func (m *Multiset) Hash() *externalapi.DomainHash {
	finalizedHash := m.ms.Clone().Finalize()
	var hashArray [externalapi.DomainHashSize]byte
	copy(hashArray[:], finalizedHash[:])
	return externalapi.NewDomainHashFromByteArray(&hashArray)
}

// Clone returns an independent copy of the multiset
func (m *Multiset) Clone() *Multiset {
	return &Multiset{ms: m.ms.Clone()}
}
