package blockindex

import (
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// BlockNode is a block retained in the index along with the UTXO set
// resulting from applying it on top of its parent's
type BlockNode struct {
	Block   *externalapi.DomainBlock
	Hash    *externalapi.DomainHash
	Height  uint64
	UTXOSet externalapi.ReadOnlyUTXOSet
}

// BlockIndex is an arena of block nodes, addressed both by hash and by
// height. Nodes at the same height are kept in insertion order.
//
// BlockIndex is not safe for concurrent use.
type BlockIndex struct {
	nodesByHash   map[externalapi.DomainHash]*BlockNode
	nodesByHeight map[uint64][]*BlockNode
	minHeight     uint64
	maxHeight     uint64
}

// New instantiates a new, empty BlockIndex
func New() *BlockIndex {
	return &BlockIndex{
		nodesByHash:   make(map[externalapi.DomainHash]*BlockNode),
		nodesByHeight: make(map[uint64][]*BlockNode),
	}
}

// Insert adds node to the index. It fails if a node with the same hash is
// already retained.
func (bi *BlockIndex) Insert(node *BlockNode) error {
	if _, ok := bi.nodesByHash[*node.Hash]; ok {
		return errors.Wrapf(ruleerrors.ErrDuplicateBlock, "block %s is already in the index", node.Hash)
	}

	if len(bi.nodesByHash) == 0 {
		bi.minHeight = node.Height
		bi.maxHeight = node.Height
	} else {
		if node.Height > bi.maxHeight {
			bi.maxHeight = node.Height
		}
		if node.Height < bi.minHeight {
			bi.minHeight = node.Height
		}
	}

	bi.nodesByHash[*node.Hash] = node
	bi.nodesByHeight[node.Height] = append(bi.nodesByHeight[node.Height], node)
	return nil
}

// Get returns the node of the block with the given hash, if it's retained
func (bi *BlockIndex) Get(blockHash *externalapi.DomainHash) (*BlockNode, bool) {
	node, ok := bi.nodesByHash[*blockHash]
	return node, ok
}

// Exists returns whether the given blockHash exists in the index
func (bi *BlockIndex) Exists(blockHash *externalapi.DomainHash) bool {
	_, ok := bi.nodesByHash[*blockHash]
	return ok
}

// NodesAtHeight returns the nodes at height, in insertion order
func (bi *BlockIndex) NodesAtHeight(height uint64) []*BlockNode {
	nodes := bi.nodesByHeight[height]
	nodesCopy := make([]*BlockNode, len(nodes))
	copy(nodesCopy, nodes)
	return nodesCopy
}

// Tip returns the first node inserted at the maximum height, or nil if the
// index is empty
func (bi *BlockIndex) Tip() *BlockNode {
	nodes := bi.nodesByHeight[bi.maxHeight]
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// MaxHeight returns the height of the highest retained node
func (bi *BlockIndex) MaxHeight() uint64 {
	return bi.maxHeight
}

// MinHeight returns the height of the lowest retained node
func (bi *BlockIndex) MinHeight() uint64 {
	return bi.minHeight
}

// Len returns the number of retained nodes
func (bi *BlockIndex) Len() int {
	return len(bi.nodesByHash)
}

// Prune removes every node below floor and returns the number of removed
// nodes. The maximum height is never pruned.
func (bi *BlockIndex) Prune(floor uint64) int {
	if floor > bi.maxHeight {
		floor = bi.maxHeight
	}

	removed := 0
	for height := bi.minHeight; height < floor; height++ {
		for _, node := range bi.nodesByHeight[height] {
			delete(bi.nodesByHash, *node.Hash)
			removed++
		}
		delete(bi.nodesByHeight, height)
	}
	if floor > bi.minHeight {
		bi.minHeight = floor
	}
	return removed
}
