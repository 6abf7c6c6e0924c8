package consensus

import (
	"github.com/kaspanet/utxotree/domain/consensus/utils/txsign"
	"github.com/kaspanet/utxotree/domain/miningmanager/mempool"
)

// DefaultRetentionWindow is the default number of heights below the tip
// whose blocks are retained
const DefaultRetentionWindow = 10

// Config is a descriptor of a consensus instance
type Config struct {
	// RetentionWindow is how far below the maximum height blocks are
	// retained. A block may attach to any retained parent.
	RetentionWindow uint64

	// SignatureVerifier verifies the signatures of transaction inputs
	SignatureVerifier txsign.Verifier

	Mempool *mempool.Config
}

// DefaultConfig returns the default consensus configuration, verifying
// Schnorr signatures
func DefaultConfig() *Config {
	return &Config{
		RetentionWindow:   DefaultRetentionWindow,
		SignatureVerifier: txsign.NewSchnorrVerifier(),
		Mempool:           mempool.DefaultConfig(),
	}
}
