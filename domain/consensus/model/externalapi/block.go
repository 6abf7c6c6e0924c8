package externalapi

// DomainBlock represents a block: a parent hash, the non-coinbase
// transactions it applies and the coinbase transaction that rewards it.
type DomainBlock struct {
	ParentHash   DomainHash
	Transactions []*DomainTransaction
	Coinbase     *DomainTransaction
	Nonce        uint64
}

// Clone returns a clone of DomainBlock
func (block *DomainBlock) Clone() *DomainBlock {
	transactionClone := make([]*DomainTransaction, len(block.Transactions))
	for i, tx := range block.Transactions {
		transactionClone[i] = tx.Clone()
	}

	var coinbaseClone *DomainTransaction
	if block.Coinbase != nil {
		coinbaseClone = block.Coinbase.Clone()
	}

	return &DomainBlock{
		ParentHash:   block.ParentHash,
		Transactions: transactionClone,
		Coinbase:     coinbaseClone,
		Nonce:        block.Nonce,
	}
}

// If this doesn't compile, it means the type definition has been changed, so it's
// an indication to update Equal and Clone accordingly.
var _ = DomainBlock{DomainHash{}, []*DomainTransaction{}, &DomainTransaction{}, 0}

// Equal returns whether block equals to other
func (block *DomainBlock) Equal(other *DomainBlock) bool {
	if block == nil || other == nil {
		return block == other
	}

	if block.ParentHash != other.ParentHash || block.Nonce != other.Nonce {
		return false
	}

	if len(block.Transactions) != len(other.Transactions) {
		return false
	}
	for i, tx := range block.Transactions {
		if !tx.Equal(other.Transactions[i]) {
			return false
		}
	}

	return block.Coinbase.Equal(other.Coinbase)
}
