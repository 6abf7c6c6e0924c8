package txsign

import (
	"github.com/kaspanet/go-secp256k1"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
)

// Verifier decides whether signature is a valid signature by owner over
// payload. Implementations must be pure and safe for concurrent use.
type Verifier interface {
	Verify(owner []byte, payload *externalapi.DomainHash, signature []byte) bool
}

// VerifierFunc is an adapter to allow the use of ordinary functions as
// Verifiers.
type VerifierFunc func(owner []byte, payload *externalapi.DomainHash, signature []byte) bool

// Verify calls f(owner, payload, signature)
func (f VerifierFunc) Verify(owner []byte, payload *externalapi.DomainHash, signature []byte) bool {
	return f(owner, payload, signature)
}

// SchnorrVerifier verifies Schnorr signatures over secp256k1. Owners are
// serialized Schnorr public keys.
type SchnorrVerifier struct{}

// NewSchnorrVerifier returns a Verifier for Schnorr signatures
func NewSchnorrVerifier() Verifier {
	return SchnorrVerifier{}
}

// Verify implements Verifier. Malformed keys or signatures are reported as
// invalid signatures rather than as errors.
func (SchnorrVerifier) Verify(owner []byte, payload *externalapi.DomainHash, signature []byte) bool {
	publicKey, err := secp256k1.DeserializeSchnorrPubKey(owner)
	if err != nil {
		return false
	}
	schnorrSignature, err := secp256k1.DeserializeSchnorrSignatureFromSlice(signature)
	if err != nil {
		return false
	}

	secpHash := secp256k1.Hash(*payload.ByteArray())
	return publicKey.SchnorrVerify(&secpHash, schnorrSignature)
}
