package utxo

import (
	"bytes"
	"encoding/binary"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
)

// utxoSerializer builds the byte representation of an outpoint and its entry
// that is added to the set's multiset commitment.
type utxoSerializer struct {
	buffer bytes.Buffer
}

func newUTXOSerializer() *utxoSerializer {
	return &utxoSerializer{}
}

func (s *utxoSerializer) writeUint32(value uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], value)
	s.buffer.Write(buf[:])
}

func (s *utxoSerializer) writeUint64(value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	s.buffer.Write(buf[:])
}

func (s *utxoSerializer) writeOutpoint(outpoint *externalapi.DomainOutpoint) {
	s.buffer.Write(outpoint.TransactionID.ByteSlice())
	s.writeUint32(outpoint.Index)
}

func (s *utxoSerializer) writeEntry(entry externalapi.UTXOEntry) {
	s.writeUint64(uint64(entry.Amount()))
	if entry.IsCoinbase() {
		s.buffer.WriteByte(1)
	} else {
		s.buffer.WriteByte(0)
	}
	s.writeUint64(uint64(len(entry.Owner())))
	s.buffer.Write(entry.Owner())
}

func (s *utxoSerializer) bytes() []byte {
	return s.buffer.Bytes()
}
