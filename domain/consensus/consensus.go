package consensus

import (
	"sync"

	"github.com/kaspanet/utxotree/domain/consensus/datastructures/blockindex"
	"github.com/kaspanet/utxotree/domain/consensus/model"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/miningmanager/mempool"
	"github.com/kaspanet/utxotree/infrastructure/logger"
	"github.com/pkg/errors"
)

// ErrBlockNotFound is returned by accessors queried for a block that was
// never attached or was already pruned
var ErrBlockNotFound = errors.New("block not found")

// Consensus maintains the tree of retained blocks, each with its own UTXO
// set, along with the pool of pending transactions
type Consensus interface {
	AddBlock(block *externalapi.DomainBlock) error
	AddTransaction(transaction *externalapi.DomainTransaction) error
	ValidateTransaction(transaction *externalapi.DomainTransaction) (fee int64, err error)

	MaxHeightBlock() *externalapi.DomainBlock
	MaxHeightBlockHash() *externalapi.DomainHash
	MaxHeightUTXOSet() externalapi.ReadOnlyUTXOSet
	MaxHeight() uint64
	MinRetainedHeight() uint64
	Tips() []*externalapi.DomainHash
	TransactionPool() *mempool.Mempool

	GetBlock(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error)
	GetBlockHeight(blockHash *externalapi.DomainHash) (uint64, error)
	GetUTXOSet(blockHash *externalapi.DomainHash) (externalapi.ReadOnlyUTXOSet, error)
}

type consensus struct {
	lock            *sync.RWMutex
	retentionWindow uint64

	transactionValidator model.TransactionValidator
	batchApplier         *batchapplier.BatchApplier
	blockIndex           *blockindex.BlockIndex
	mempool              *mempool.Mempool
}

// AddBlock attaches block to its parent, which has to be retained. The
// block's transactions are applied, all or nothing, to a copy of the
// parent's UTXO set, and the coinbase output is credited on top. Once the
// block is attached, every block that fell out of the retention window is
// pruned. If the block became the tip, its transactions and every pool
// transaction conflicting with them leave the transaction pool.
//
// Transactions are applied without holding the lock, so blocks on
// different parents are validated concurrently.
func (s *consensus) AddBlock(block *externalapi.DomainBlock) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "AddBlock")
	defer onEnd()

	err := validateBlockTransactionShapes(block)
	if err != nil {
		return err
	}
	blockHash := consensushashing.BlockHash(block)

	parent, err := s.lookupParent(block, blockHash)
	if err != nil {
		return err
	}

	node, err := s.buildBlockNode(block, blockHash, parent)
	if err != nil {
		return err
	}

	isTip, err := s.insertBlockNode(node)
	if err != nil {
		return err
	}

	if !isTip {
		log.Infof("Accepted side block %s at height %d with %d transactions",
			blockHash, node.Height, len(block.Transactions))
		return nil
	}
	doubleSpends := s.mempool.HandleNewBlock(block)
	log.Infof("Accepted block %s at height %d with %d transactions (%d pool transactions evicted)",
		blockHash, node.Height, len(block.Transactions), len(doubleSpends))
	return nil
}

func (s *consensus) lookupParent(block *externalapi.DomainBlock,
	blockHash *externalapi.DomainHash) (*blockindex.BlockNode, error) {

	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.blockIndex.Exists(blockHash) {
		return nil, errors.Wrapf(ruleerrors.ErrDuplicateBlock, "block %s is already attached", blockHash)
	}
	parent, ok := s.blockIndex.Get(&block.ParentHash)
	if !ok {
		return nil, ruleerrors.NewErrMissingParent(&block.ParentHash)
	}
	return parent, nil
}

func (s *consensus) buildBlockNode(block *externalapi.DomainBlock, blockHash *externalapi.DomainHash,
	parent *blockindex.BlockNode) (*blockindex.BlockNode, error) {

	coinbaseOutpoint := externalapi.NewDomainOutpoint(consensushashing.TransactionID(block.Coinbase), 0)
	if parent.UTXOSet.Contains(coinbaseOutpoint) {
		return nil, errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction,
			"coinbase output %s of block %s is already unspent in its parent", coinbaseOutpoint, blockHash)
	}

	utxoSet, fees, err := s.batchApplier.ApplyAll(block.Transactions, parent.UTXOSet)
	if err != nil {
		return nil, errors.Wrapf(err, "block %s", blockHash)
	}
	err = utxoSet.AddCoinbaseOutput(block.Coinbase)
	if err != nil {
		return nil, err
	}
	log.Tracef("UTXO set of block %s after collecting %d in fees: %s", blockHash, fees, utxoSet)

	return &blockindex.BlockNode{
		Block:   block.Clone(),
		Hash:    blockHash,
		Height:  parent.Height + 1,
		UTXOSet: utxoSet.ReadOnly(),
	}, nil
}

// insertBlockNode attaches node and prunes the index. It returns whether
// node became the canonical tip.
func (s *consensus) insertBlockNode(node *blockindex.BlockNode) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	// The parent may have been pruned while the block's transactions were
	// being applied
	if !s.blockIndex.Exists(&node.Block.ParentHash) {
		return false, ruleerrors.NewErrMissingParent(&node.Block.ParentHash)
	}
	err := s.blockIndex.Insert(node)
	if err != nil {
		return false, err
	}
	isTip := s.blockIndex.Tip() == node

	maxHeight := s.blockIndex.MaxHeight()
	if maxHeight >= s.retentionWindow {
		pruned := s.blockIndex.Prune(maxHeight - s.retentionWindow)
		if pruned > 0 {
			log.Debugf("Pruned %d blocks below height %d", pruned, maxHeight-s.retentionWindow)
		}
	}
	return isTip, nil
}

// validateBlockTransactionShapes makes sure the block carries a well formed
// coinbase and that none of its regular transactions is malformed or mints
// value. It runs before anything in the block is hashed.
func validateBlockTransactionShapes(block *externalapi.DomainBlock) error {
	if block == nil {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction, "block is nil")
	}
	err := validateCoinbase(block.Coinbase)
	if err != nil {
		return err
	}
	for i, transaction := range block.Transactions {
		if transaction == nil {
			return errors.Wrapf(ruleerrors.ErrPartialBlock, "transaction %d of the block is nil", i)
		}
		err := validateNoNilFields(transaction)
		if err != nil {
			return errors.Wrapf(ruleerrors.ErrPartialBlock, "transaction %d of the block: %s", i, err)
		}
		if transaction.IsCoinbase() {
			return errors.Wrapf(ruleerrors.ErrMultipleCoinbases,
				"transaction %d of the block has no inputs", i)
		}
	}
	return nil
}

// validateCoinbase checks that coinbase has no inputs and exactly one
// non-negative output
func validateCoinbase(coinbase *externalapi.DomainTransaction) error {
	if coinbase == nil {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction, "block has no coinbase")
	}
	if len(coinbase.Inputs) != 0 {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction,
			"coinbase has %d inputs while it should have none", len(coinbase.Inputs))
	}
	if len(coinbase.Outputs) != 1 {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction,
			"coinbase has %d outputs while it should have exactly one", len(coinbase.Outputs))
	}
	if coinbase.Outputs[0] == nil {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction, "coinbase output is nil")
	}
	if coinbase.Outputs[0].Value < 0 {
		return errors.Wrapf(ruleerrors.ErrBadCoinbaseTransaction,
			"coinbase output value %d is negative", coinbase.Outputs[0].Value)
	}
	return nil
}

func validateNoNilFields(transaction *externalapi.DomainTransaction) error {
	for i, input := range transaction.Inputs {
		if input == nil {
			return errors.Errorf("input %d is nil", i)
		}
	}
	for i, output := range transaction.Outputs {
		if output == nil {
			return errors.Errorf("output %d is nil", i)
		}
	}
	return nil
}

// AddTransaction adds transaction to the transaction pool without
// validating it
func (s *consensus) AddTransaction(transaction *externalapi.DomainTransaction) error {
	return s.mempool.AddTransaction(transaction)
}

// ValidateTransaction validates transaction against the UTXO set of the
// current tip and returns its fee
func (s *consensus) ValidateTransaction(transaction *externalapi.DomainTransaction) (int64, error) {
	return s.transactionValidator.ValidateTransaction(transaction, s.MaxHeightUTXOSet())
}

func (s *consensus) tip() *blockindex.BlockNode {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.blockIndex.Tip()
}

// MaxHeightBlock returns the canonical tip: the first block attached at the
// maximum height
func (s *consensus) MaxHeightBlock() *externalapi.DomainBlock {
	return s.tip().Block
}

func (s *consensus) MaxHeightBlockHash() *externalapi.DomainHash {
	return s.tip().Hash
}

// MaxHeightUTXOSet returns the UTXO set of the canonical tip
func (s *consensus) MaxHeightUTXOSet() externalapi.ReadOnlyUTXOSet {
	return s.tip().UTXOSet
}

func (s *consensus) MaxHeight() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.blockIndex.MaxHeight()
}

// MinRetainedHeight returns the lowest height a parent may have for a block
// to be attached to it
func (s *consensus) MinRetainedHeight() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.blockIndex.MinHeight()
}

// Tips returns the hashes of all blocks at the maximum height, canonical
// tip first
func (s *consensus) Tips() []*externalapi.DomainHash {
	s.lock.RLock()
	defer s.lock.RUnlock()

	nodes := s.blockIndex.NodesAtHeight(s.blockIndex.MaxHeight())
	tips := make([]*externalapi.DomainHash, len(nodes))
	for i, node := range nodes {
		tips[i] = node.Hash
	}
	return tips
}

func (s *consensus) TransactionPool() *mempool.Mempool {
	return s.mempool
}

func (s *consensus) getBlockNode(blockHash *externalapi.DomainHash) (*blockindex.BlockNode, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	node, ok := s.blockIndex.Get(blockHash)
	if !ok {
		return nil, errors.Wrapf(ErrBlockNotFound, "block %s is not retained", blockHash)
	}
	return node, nil
}

func (s *consensus) GetBlock(blockHash *externalapi.DomainHash) (*externalapi.DomainBlock, error) {
	node, err := s.getBlockNode(blockHash)
	if err != nil {
		return nil, err
	}
	return node.Block, nil
}

func (s *consensus) GetBlockHeight(blockHash *externalapi.DomainHash) (uint64, error) {
	node, err := s.getBlockNode(blockHash)
	if err != nil {
		return 0, err
	}
	return node.Height, nil
}

func (s *consensus) GetUTXOSet(blockHash *externalapi.DomainHash) (externalapi.ReadOnlyUTXOSet, error) {
	node, err := s.getBlockNode(blockHash)
	if err != nil {
		return nil, err
	}
	return node.UTXOSet, nil
}
