package testutils

import (
	"testing"

	"github.com/kaspanet/utxotree/domain/consensus/utils/txsign"
)

// SignatureScheme bundles a signature Verifier with a way to create signers
// whose signatures it accepts
type SignatureScheme struct {
	Name      string
	Verifier  txsign.Verifier
	NewSigner func(seed byte) Signer
}

// SignatureSchemes returns every signature scheme tests should pass under
func SignatureSchemes() []*SignatureScheme {
	return []*SignatureScheme{
		{
			Name:      "schnorr",
			Verifier:  txsign.NewSchnorrVerifier(),
			NewSigner: NewSchnorrSigner,
		},
		{
			Name:      "fake",
			Verifier:  NewFakeVerifier(),
			NewSigner: NewFakeSigner,
		},
	}
}

// ForAllVerifiers runs the passed testFunc with all available signature
// schemes
func ForAllVerifiers(t *testing.T, testFunc func(*testing.T, *SignatureScheme)) {
	for _, scheme := range SignatureSchemes() {
		scheme := scheme
		t.Run(scheme.Name, func(t *testing.T) {
			t.Parallel()
			testFunc(t, scheme)
		})
	}
}
