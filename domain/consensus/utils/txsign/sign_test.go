package txsign

import (
	"testing"

	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
)

func TestSignAndVerify(t *testing.T) {
	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %s", err)
	}
	owner, err := Owner(keyPair)
	if err != nil {
		t.Fatalf("Owner: %s", err)
	}

	otherKeyPair, err := KeyPairFromSeed([]byte{
		0x6b, 0x0f, 0xd8, 0xda, 0x54, 0x22, 0xd0, 0xb7, 0x6b, 0x0f, 0xd8, 0xda, 0x54, 0x22, 0xd0, 0xb7,
		0x6b, 0x0f, 0xd8, 0xda, 0x54, 0x22, 0xd0, 0xb7, 0x6b, 0x0f, 0xd8, 0xda, 0x54, 0x22, 0xd0, 0xb7,
	})
	if err != nil {
		t.Fatalf("KeyPairFromSeed: %s", err)
	}
	otherOwner, err := Owner(otherKeyPair)
	if err != nil {
		t.Fatalf("Owner: %s", err)
	}

	tx := &externalapi.DomainTransaction{
		Inputs: []*externalapi.DomainTransactionInput{
			{PreviousOutpoint: externalapi.DomainOutpoint{Index: 0}},
			{PreviousOutpoint: externalapi.DomainOutpoint{Index: 1}},
		},
		Outputs: []*externalapi.DomainTransactionOutput{{Value: 10, Owner: otherOwner}},
	}
	err = SignAllInputs(tx, keyPair)
	if err != nil {
		t.Fatalf("SignAllInputs: %s", err)
	}

	verifier := NewSchnorrVerifier()
	for i, input := range tx.Inputs {
		payload, err := consensushashing.CalculateSignatureHash(tx, i)
		if err != nil {
			t.Fatalf("CalculateSignatureHash: %s", err)
		}
		if !verifier.Verify(owner, payload, input.Signature) {
			t.Fatalf("TestSignAndVerify: signature of input %d is invalid", i)
		}
		if verifier.Verify(otherOwner, payload, input.Signature) {
			t.Fatalf("TestSignAndVerify: signature of input %d verified under the wrong key", i)
		}
	}

	// A signature over input 0 is not valid for input 1
	payload1, err := consensushashing.CalculateSignatureHash(tx, 1)
	if err != nil {
		t.Fatalf("CalculateSignatureHash: %s", err)
	}
	if verifier.Verify(owner, payload1, tx.Inputs[0].Signature) {
		t.Fatalf("TestSignAndVerify: signature of input 0 verified for input 1")
	}

	// Changing an output invalidates the signatures
	tx.Outputs[0].Value = 11
	payload0, err := consensushashing.CalculateSignatureHash(tx, 0)
	if err != nil {
		t.Fatalf("CalculateSignatureHash: %s", err)
	}
	if verifier.Verify(owner, payload0, tx.Inputs[0].Signature) {
		t.Fatalf("TestSignAndVerify: signature still valid after the outputs changed")
	}
}

func TestVerifyMalformed(t *testing.T) {
	verifier := NewSchnorrVerifier()
	payload := &externalapi.DomainHash{}

	if verifier.Verify([]byte{1, 2, 3}, payload, make([]byte, 64)) {
		t.Fatalf("TestVerifyMalformed: malformed owner verified")
	}

	keyPair, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %s", err)
	}
	owner, err := Owner(keyPair)
	if err != nil {
		t.Fatalf("Owner: %s", err)
	}
	if verifier.Verify(owner, payload, []byte{1, 2, 3}) {
		t.Fatalf("TestVerifyMalformed: malformed signature verified")
	}
	if verifier.Verify(owner, payload, nil) {
		t.Fatalf("TestVerifyMalformed: empty signature verified")
	}
}

func TestVerifierFunc(t *testing.T) {
	called := false
	var verifier Verifier = VerifierFunc(func(owner []byte, payload *externalapi.DomainHash, signature []byte) bool {
		called = true
		return len(signature) == 1 && signature[0] == owner[0]
	})
	if !verifier.Verify([]byte{7}, &externalapi.DomainHash{}, []byte{7}) {
		t.Fatalf("TestVerifierFunc: expected a valid signature")
	}
	if !called {
		t.Fatalf("TestVerifierFunc: wrapped function wasn't called")
	}
}
