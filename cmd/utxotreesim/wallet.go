package main

import (
	"encoding/binary"

	"github.com/kaspanet/go-secp256k1"
	"github.com/kaspanet/utxotree/domain/consensus/utils/txsign"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

type wallet struct {
	keyPair *secp256k1.SchnorrKeyPair
	owner   []byte
}

// newWallets derives count wallets from seed, so that every run with the
// same seed uses the same keys
func newWallets(seed int64, count int) ([]*wallet, error) {
	wallets := make([]*wallet, count)
	for i := range wallets {
		var keySeed [16]byte
		binary.LittleEndian.PutUint64(keySeed[:8], uint64(seed))
		binary.LittleEndian.PutUint64(keySeed[8:], uint64(i))
		privateKey := blake2b.Sum256(keySeed[:])

		keyPair, err := txsign.KeyPairFromSeed(privateKey[:])
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't derive the key of wallet %d", i)
		}
		owner, err := txsign.Owner(keyPair)
		if err != nil {
			return nil, err
		}
		wallets[i] = &wallet{keyPair: keyPair, owner: owner}
	}
	return wallets, nil
}
