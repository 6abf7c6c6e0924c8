package testutils

import (
	"bytes"

	"github.com/kaspanet/go-secp256k1"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/txsign"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// Signer owns outputs and signs the inputs that spend them
type Signer interface {
	Owner() []byte
	SignInput(tx *externalapi.DomainTransaction, inputIndex int) error
}

// SignAllInputs signs every input of tx with signer
func SignAllInputs(tx *externalapi.DomainTransaction, signer Signer) error {
	for i := range tx.Inputs {
		err := signer.SignInput(tx, i)
		if err != nil {
			return err
		}
	}
	return nil
}

type schnorrSigner struct {
	keyPair *secp256k1.SchnorrKeyPair
	owner   []byte
}

// NewSchnorrSigner returns a Schnorr signer whose private key is derived
// deterministically from seed
func NewSchnorrSigner(seed byte) Signer {
	privateKey := blake2b.Sum256([]byte{'t', 'e', 's', 't', seed})
	keyPair, err := txsign.KeyPairFromSeed(privateKey[:])
	if err != nil {
		panic(errors.Wrapf(err, "couldn't derive a key pair from seed %d", seed))
	}
	owner, err := txsign.Owner(keyPair)
	if err != nil {
		panic(err)
	}
	return &schnorrSigner{keyPair: keyPair, owner: owner}
}

func (s *schnorrSigner) Owner() []byte {
	return s.owner
}

func (s *schnorrSigner) SignInput(tx *externalapi.DomainTransaction, inputIndex int) error {
	return txsign.SignInput(tx, inputIndex, s.keyPair)
}

type fakeSigner struct {
	owner []byte
}

// NewFakeSigner returns a signer whose signatures are accepted by
// NewFakeVerifier. Its signature over a payload is the owner followed by
// the payload itself.
func NewFakeSigner(seed byte) Signer {
	return &fakeSigner{owner: []byte{'o', 'w', 'n', 'e', 'r', seed}}
}

func (s *fakeSigner) Owner() []byte {
	return s.owner
}

func (s *fakeSigner) SignInput(tx *externalapi.DomainTransaction, inputIndex int) error {
	signatureHash, err := consensushashing.CalculateSignatureHash(tx, inputIndex)
	if err != nil {
		return err
	}
	tx.Inputs[inputIndex].Signature = fakeSignature(s.owner, signatureHash)
	return nil
}

func fakeSignature(owner []byte, payload *externalapi.DomainHash) []byte {
	signature := make([]byte, 0, len(owner)+externalapi.DomainHashSize)
	signature = append(signature, owner...)
	return append(signature, payload.ByteSlice()...)
}

// NewFakeVerifier returns a cheap Verifier that accepts the signatures made
// by fake signers
func NewFakeVerifier() txsign.Verifier {
	return txsign.VerifierFunc(func(owner []byte, payload *externalapi.DomainHash, signature []byte) bool {
		return bytes.Equal(signature, fakeSignature(owner, payload))
	})
}
