package txsign

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/pkg/errors"
)

// GenerateKeyPair generates a new random Schnorr key pair
func GenerateKeyPair() (*secp256k1.SchnorrKeyPair, error) {
	keyPair, err := secp256k1.GenerateSchnorrKeyPair()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate a key pair")
	}
	return keyPair, nil
}

// KeyPairFromSeed deserializes a 32-byte private key into a Schnorr key pair
func KeyPairFromSeed(privateKey []byte) (*secp256k1.SchnorrKeyPair, error) {
	keyPair, err := secp256k1.DeserializeSchnorrPrivateKeyFromSlice(privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to deserialize private key")
	}
	return keyPair, nil
}

// Owner returns the serialized public key of keyPair, to be used as the
// owner of transaction outputs.
func Owner(keyPair *secp256k1.SchnorrKeyPair) ([]byte, error) {
	publicKey, err := keyPair.SchnorrPublicKey()
	if err != nil {
		return nil, err
	}
	serializedPublicKey, err := publicKey.Serialize()
	if err != nil {
		return nil, err
	}
	return serializedPublicKey[:], nil
}

// RawTxInSignature returns the serialized Schnorr signature for the input idx
// of the given transaction.
func RawTxInSignature(tx *externalapi.DomainTransaction, idx int, keyPair *secp256k1.SchnorrKeyPair) ([]byte, error) {
	hash, err := consensushashing.CalculateSignatureHash(tx, idx)
	if err != nil {
		return nil, err
	}
	secpHash := secp256k1.Hash(*hash.ByteArray())
	signature, err := keyPair.SchnorrSign(&secpHash)
	if err != nil {
		return nil, errors.Errorf("cannot sign tx input: %s", err)
	}

	return signature.Serialize()[:], nil
}

// SignInput signs input idx of tx with keyPair and stores the signature in
// the input.
func SignInput(tx *externalapi.DomainTransaction, idx int, keyPair *secp256k1.SchnorrKeyPair) error {
	signature, err := RawTxInSignature(tx, idx, keyPair)
	if err != nil {
		return err
	}
	tx.Inputs[idx].Signature = signature
	return nil
}

// SignAllInputs signs every input of tx with keyPair
func SignAllInputs(tx *externalapi.DomainTransaction, keyPair *secp256k1.SchnorrKeyPair) error {
	for i := range tx.Inputs {
		err := SignInput(tx, i, keyPair)
		if err != nil {
			return err
		}
	}
	return nil
}
