package consensushashing

import (
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/hashes"
)

// BlockHash returns the given block's hash. The hash commits to the parent
// hash, to the nonce and to the IDs of every transaction including the coinbase.
func BlockHash(block *externalapi.DomainBlock) *externalapi.DomainHash {
	writer := hashes.NewBlockHashWriter()
	writer.WriteHash(&block.ParentHash)
	writer.WriteUint64(block.Nonce)

	writer.WriteUint64(uint64(len(block.Transactions)))
	for _, tx := range block.Transactions {
		writer.InfallibleWrite(TransactionID(tx).ByteSlice())
	}

	if block.Coinbase != nil {
		writer.InfallibleWrite([]byte{1})
		writer.InfallibleWrite(TransactionID(block.Coinbase).ByteSlice())
	} else {
		writer.InfallibleWrite([]byte{0})
	}

	return writer.Finalize()
}
