package consensus

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
)

// TestConsensus wraps Consensus with methods that are useful for tests
type TestConsensus interface {
	Consensus

	// BuildBlockWithParent builds a block on top of parentHash, with a
	// coinbase paying coinbaseValue to coinbaseOwner. Every built block gets
	// a fresh nonce and coinbase payload, so two calls never build the same
	// block.
	BuildBlockWithParent(parentHash *externalapi.DomainHash, coinbaseOwner []byte, coinbaseValue int64,
		transactions []*externalapi.DomainTransaction) *externalapi.DomainBlock

	AddBlockWithParent(parentHash *externalapi.DomainHash, coinbaseOwner []byte, coinbaseValue int64,
		transactions []*externalapi.DomainTransaction) (*externalapi.DomainBlock, *externalapi.DomainHash, error)

	RetainedBlockCount() int
	BlockHashesAtHeight(height uint64) []*externalapi.DomainHash
}

type testConsensus struct {
	nonce uint64
	*consensus
}

func (tc *testConsensus) BuildBlockWithParent(parentHash *externalapi.DomainHash, coinbaseOwner []byte,
	coinbaseValue int64, transactions []*externalapi.DomainTransaction) *externalapi.DomainBlock {

	nonce := atomic.AddUint64(&tc.nonce, 1)
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload, nonce)

	return &externalapi.DomainBlock{
		ParentHash:   *parentHash,
		Transactions: transactions,
		Coinbase: &externalapi.DomainTransaction{
			Outputs: []*externalapi.DomainTransactionOutput{{Value: coinbaseValue, Owner: coinbaseOwner}},
			Payload: payload,
		},
		Nonce: nonce,
	}
}

func (tc *testConsensus) AddBlockWithParent(parentHash *externalapi.DomainHash, coinbaseOwner []byte,
	coinbaseValue int64, transactions []*externalapi.DomainTransaction) (
	*externalapi.DomainBlock, *externalapi.DomainHash, error) {

	block := tc.BuildBlockWithParent(parentHash, coinbaseOwner, coinbaseValue, transactions)
	err := tc.AddBlock(block)
	if err != nil {
		return nil, nil, err
	}
	return block, consensushashing.BlockHash(block), nil
}

func (tc *testConsensus) RetainedBlockCount() int {
	tc.lock.RLock()
	defer tc.lock.RUnlock()

	return tc.blockIndex.Len()
}

func (tc *testConsensus) BlockHashesAtHeight(height uint64) []*externalapi.DomainHash {
	tc.lock.RLock()
	defer tc.lock.RUnlock()

	nodes := tc.blockIndex.NodesAtHeight(height)
	hashes := make([]*externalapi.DomainHash, len(nodes))
	for i, node := range nodes {
		hashes[i] = node.Hash
	}
	return hashes
}
