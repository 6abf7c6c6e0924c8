package miningmanager_test

import (
	"testing"

	"github.com/kaspanet/utxotree/domain/consensus"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/testutils"
	"github.com/kaspanet/utxotree/domain/miningmanager"
	"github.com/pkg/errors"
)

type testSetup struct {
	t               *testing.T
	tc              consensus.TestConsensus
	x               testutils.Signer
	genesisOutpoint *externalapi.DomainOutpoint
	miningManager   miningmanager.MiningManager
}

func setup(t *testing.T, scheme *testutils.SignatureScheme, strategy batchapplier.Strategy) *testSetup {
	x := scheme.NewSigner(1)
	genesis := &externalapi.DomainBlock{
		Coinbase: testutils.CoinbaseTransaction(x.Owner(), 100, []byte("genesis")),
	}

	consensusConfig := consensus.DefaultConfig()
	consensusConfig.SignatureVerifier = scheme.Verifier
	tc, err := consensus.NewFactory().NewTestConsensus(consensusConfig, genesis)
	if err != nil {
		t.Fatalf("Error setting up consensus: %+v", err)
	}

	config := miningmanager.DefaultConfig()
	if strategy != nil {
		config.Strategy = strategy
	}
	return &testSetup{
		t:               t,
		tc:              tc,
		x:               x,
		genesisOutpoint: testutils.Outpoint(genesis.Coinbase, 0),
		miningManager:   miningmanager.NewFactory().NewMiningManager(tc, consensusConfig, config),
	}
}

func (s *testSetup) spendGenesis(fee int64) *externalapi.DomainTransaction {
	tx, err := testutils.SpendingTransaction(s.x, []*externalapi.DomainOutpoint{s.genesisOutpoint},
		testutils.Output(100-fee, s.x.Owner()))
	if err != nil {
		s.t.Fatalf("SpendingTransaction: %s", err)
	}
	return tx
}

func TestValidateAndInsertTransaction(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, nil)

		err := s.miningManager.ValidateAndInsertTransaction(s.spendGenesis(5))
		if err != nil {
			t.Fatalf("ValidateAndInsertTransaction: %+v", err)
		}

		overspend := s.spendGenesis(-1)
		err = s.miningManager.ValidateAndInsertTransaction(overspend)
		if !errors.Is(err, ruleerrors.ErrInsufficientInput) {
			t.Fatalf("TestValidateAndInsertTransaction: expected ErrInsufficientInput, got: %v", err)
		}

		coinbase := testutils.CoinbaseTransaction(s.x.Owner(), 1000, nil)
		err = s.miningManager.ValidateAndInsertTransaction(coinbase)
		if !errors.Is(err, miningmanager.ErrCoinbaseTransaction) {
			t.Fatalf("TestValidateAndInsertTransaction: expected ErrCoinbaseTransaction, got: %v", err)
		}

		if len(s.miningManager.AllTransactions()) != 1 {
			t.Fatalf("TestValidateAndInsertTransaction: expected a single pool transaction, got %d",
				len(s.miningManager.AllTransactions()))
		}
	})
}

func TestGetBlockTemplate(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		tests := []struct {
			name          string
			strategy      batchapplier.Strategy
			expectedFee   int64
			expectedIndex int
		}{
			{name: "fee maximizing", strategy: batchapplier.FeeMaximizing, expectedFee: 10, expectedIndex: 1},
			{name: "exact", strategy: batchapplier.NewExactMaxWeight(), expectedFee: 10, expectedIndex: 1},
		}

		for _, test := range tests {
			s := setup(t, scheme, test.strategy)
			conflicting := []*externalapi.DomainTransaction{s.spendGenesis(5), s.spendGenesis(10)}
			for _, tx := range conflicting {
				err := s.miningManager.ValidateAndInsertTransaction(tx)
				if err != nil {
					t.Fatalf("ValidateAndInsertTransaction: %+v", err)
				}
			}

			template, err := s.miningManager.GetBlockTemplate(s.x.Owner(), 50, []byte(test.name))
			if err != nil {
				t.Fatalf("GetBlockTemplate: %+v", err)
			}
			if len(template.Transactions) != 1 || template.Transactions[0] != conflicting[test.expectedIndex] {
				t.Fatalf("TestGetBlockTemplate: %s: expected only the fee %d transaction in the template",
					test.name, test.expectedFee)
			}
			if template.Coinbase.Outputs[0].Value != 50+test.expectedFee {
				t.Fatalf("TestGetBlockTemplate: %s: expected a coinbase of %d, got %d",
					test.name, 50+test.expectedFee, template.Coinbase.Outputs[0].Value)
			}

			err = s.tc.AddBlock(template)
			if err != nil {
				t.Fatalf("AddBlock: %+v", err)
			}
			if !s.tc.MaxHeightBlockHash().Equal(consensushashing.BlockHash(template)) {
				t.Fatalf("TestGetBlockTemplate: %s: the template didn't become the tip", test.name)
			}
			if len(s.miningManager.AllTransactions()) != 0 {
				t.Fatalf("TestGetBlockTemplate: %s: the conflicting transaction stayed in the pool", test.name)
			}
		}
	})
}

func TestGetBlockTemplateSkipsInvalidTransactions(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, batchapplier.OrderedAcceptance)
		unknownOutpoint := externalapi.NewDomainOutpoint(
			externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{1}), 0)
		invalid, err := testutils.SpendingTransaction(s.x, []*externalapi.DomainOutpoint{unknownOutpoint},
			testutils.Output(1, s.x.Owner()))
		if err != nil {
			t.Fatalf("SpendingTransaction: %s", err)
		}

		// The pool doesn't validate, so all of them make it in
		poolTransactions := []*externalapi.DomainTransaction{
			invalid,
			testutils.CoinbaseTransaction(s.x.Owner(), 1000, nil),
			s.spendGenesis(0),
		}
		for _, tx := range poolTransactions {
			err := s.tc.AddTransaction(tx)
			if err != nil {
				t.Fatalf("AddTransaction: %+v", err)
			}
		}

		template, err := s.miningManager.GetBlockTemplate(s.x.Owner(), 50, nil)
		if err != nil {
			t.Fatalf("GetBlockTemplate: %+v", err)
		}
		if len(template.Transactions) != 1 || template.Transactions[0] != poolTransactions[2] {
			t.Fatalf("TestGetBlockTemplateSkipsInvalidTransactions: expected only the valid transaction in the template")
		}
		err = s.tc.AddBlock(template)
		if err != nil {
			t.Fatalf("AddBlock: %+v", err)
		}
	})
}
