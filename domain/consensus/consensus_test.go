package consensus_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/kaspanet/utxotree/domain/consensus"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/testutils"
	"github.com/pkg/errors"
)

type testSetup struct {
	t           *testing.T
	tc          consensus.TestConsensus
	x           testutils.Signer
	genesis     *externalapi.DomainBlock
	genesisHash *externalapi.DomainHash
}

func setup(t *testing.T, scheme *testutils.SignatureScheme, retentionWindow uint64) *testSetup {
	x := scheme.NewSigner(1)
	genesis := &externalapi.DomainBlock{
		Coinbase: testutils.CoinbaseTransaction(x.Owner(), 100, []byte("genesis")),
	}

	config := consensus.DefaultConfig()
	config.RetentionWindow = retentionWindow
	config.SignatureVerifier = scheme.Verifier
	tc, err := consensus.NewFactory().NewTestConsensus(config, genesis)
	if err != nil {
		t.Fatalf("Error setting up consensus: %+v", err)
	}
	return &testSetup{
		t:           t,
		tc:          tc,
		x:           x,
		genesis:     genesis,
		genesisHash: consensushashing.BlockHash(genesis),
	}
}

// buildChain adds length empty blocks on top of parentHash and returns their
// hashes, lowest first
func (s *testSetup) buildChain(parentHash *externalapi.DomainHash, length int) []*externalapi.DomainHash {
	hashes := make([]*externalapi.DomainHash, length)
	for i := range hashes {
		_, blockHash, err := s.tc.AddBlockWithParent(parentHash, s.x.Owner(), 50, nil)
		if err != nil {
			s.t.Fatalf("AddBlockWithParent: %+v", err)
		}
		hashes[i] = blockHash
		parentHash = blockHash
	}
	return hashes
}

func (s *testSetup) spend(outpoint *externalapi.DomainOutpoint,
	outputs ...*externalapi.DomainTransactionOutput) *externalapi.DomainTransaction {

	tx, err := testutils.SpendingTransaction(s.x, []*externalapi.DomainOutpoint{outpoint}, outputs...)
	if err != nil {
		s.t.Fatalf("SpendingTransaction: %s", err)
	}
	return tx
}

func TestGenesis(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)

		if s.tc.MaxHeight() != 0 {
			t.Fatalf("TestGenesis: expected max height 0, got %d", s.tc.MaxHeight())
		}
		if !s.tc.MaxHeightBlockHash().Equal(s.genesisHash) {
			t.Fatalf("TestGenesis: expected the genesis to be the tip")
		}
		if !s.tc.MaxHeightBlock().Equal(s.genesis) {
			t.Fatalf("TestGenesis: MaxHeightBlock isn't the genesis block")
		}

		utxoSet := s.tc.MaxHeightUTXOSet()
		if utxoSet.Len() != 1 {
			t.Fatalf("TestGenesis: expected a single UTXO, got %d", utxoSet.Len())
		}
		entry, ok := utxoSet.Get(testutils.Outpoint(s.genesis.Coinbase, 0))
		if !ok {
			t.Fatalf("TestGenesis: the genesis coinbase output is missing")
		}
		if entry.Amount() != 100 || !bytes.Equal(entry.Owner(), s.x.Owner()) {
			t.Fatalf("TestGenesis: unexpected genesis coinbase entry (%d, %x)", entry.Amount(), entry.Owner())
		}
	})
}

func TestGenesisWithTransactionsIsRejected(t *testing.T) {
	x := testutils.NewFakeSigner(1)
	coinbase := testutils.CoinbaseTransaction(x.Owner(), 100, nil)
	spend, err := testutils.SpendingTransaction(x, []*externalapi.DomainOutpoint{testutils.Outpoint(coinbase, 0)},
		testutils.Output(100, x.Owner()))
	if err != nil {
		t.Fatalf("SpendingTransaction: %s", err)
	}
	genesis := &externalapi.DomainBlock{
		Transactions: []*externalapi.DomainTransaction{spend},
		Coinbase:     coinbase,
	}

	config := consensus.DefaultConfig()
	config.SignatureVerifier = testutils.NewFakeVerifier()
	_, err = consensus.NewFactory().NewConsensus(config, genesis)
	if !errors.Is(err, ruleerrors.ErrPartialBlock) {
		t.Fatalf("TestGenesisWithTransactionsIsRejected: expected ErrPartialBlock, got: %v", err)
	}
}

func TestAddBlockAppliesTransactions(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		genesisOutpoint := testutils.Outpoint(s.genesis.Coinbase, 0)
		tx := s.spend(genesisOutpoint, testutils.Output(40, s.x.Owner()), testutils.Output(55, s.x.Owner()))

		fee, err := s.tc.ValidateTransaction(tx)
		if err != nil {
			t.Fatalf("ValidateTransaction: %+v", err)
		}
		if fee != 5 {
			t.Fatalf("TestAddBlockAppliesTransactions: expected a fee of 5, got %d", fee)
		}

		block, blockHash, err := s.tc.AddBlockWithParent(s.genesisHash, s.x.Owner(), 55,
			[]*externalapi.DomainTransaction{tx})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}
		if s.tc.MaxHeight() != 1 || !s.tc.MaxHeightBlockHash().Equal(blockHash) {
			t.Fatalf("TestAddBlockAppliesTransactions: the new block isn't the tip")
		}

		utxoSet := s.tc.MaxHeightUTXOSet()
		if utxoSet.Contains(genesisOutpoint) {
			t.Fatalf("TestAddBlockAppliesTransactions: the spent outpoint is still in the set")
		}
		expectedEntries := map[externalapi.DomainOutpoint]int64{
			*testutils.Outpoint(tx, 0):             40,
			*testutils.Outpoint(tx, 1):             55,
			*testutils.Outpoint(block.Coinbase, 0): 55,
		}
		if utxoSet.Len() != len(expectedEntries) {
			t.Fatalf("TestAddBlockAppliesTransactions: expected %d UTXOs, got %d", len(expectedEntries), utxoSet.Len())
		}
		for outpoint, amount := range expectedEntries {
			outpoint := outpoint
			entry, ok := utxoSet.Get(&outpoint)
			if !ok || entry.Amount() != amount {
				t.Fatalf("TestAddBlockAppliesTransactions: expected %s to hold %d", outpoint, amount)
			}
		}

		genesisUTXOSet, err := s.tc.GetUTXOSet(s.genesisHash)
		if err != nil {
			t.Fatalf("GetUTXOSet: %+v", err)
		}
		if genesisUTXOSet.Len() != 1 || !genesisUTXOSet.Contains(genesisOutpoint) {
			t.Fatalf("TestAddBlockAppliesTransactions: the genesis UTXO set was modified")
		}
	})
}

func TestAddBlockRejections(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		genesisOutpoint := testutils.Outpoint(s.genesis.Coinbase, 0)
		validTx := s.spend(genesisOutpoint, testutils.Output(100, s.x.Owner()))
		unknownOutpoint := externalapi.NewDomainOutpoint(
			externalapi.NewDomainTransactionIDFromByteArray(&[externalapi.DomainHashSize]byte{1}), 0)
		unknownOutputTx := s.spend(unknownOutpoint, testutils.Output(1, s.x.Owner()))

		existingBlock, _, err := s.tc.AddBlockWithParent(s.genesisHash, s.x.Owner(), 50, nil)
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}

		blockWithCoinbase := func(coinbase *externalapi.DomainTransaction) *externalapi.DomainBlock {
			block := s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50, nil)
			block.Coinbase = coinbase
			return block
		}

		repeatedGenesisCoinbase := s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
			[]*externalapi.DomainTransaction{validTx})
		repeatedGenesisCoinbase.Coinbase = s.genesis.Coinbase.Clone()

		tests := []struct {
			name          string
			block         *externalapi.DomainBlock
			expectedError error
		}{
			{
				name: "unknown parent",
				block: s.tc.BuildBlockWithParent(
					externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{1}), s.x.Owner(), 50, nil),
				expectedError: ruleerrors.ErrUnknownParent,
			},
			{
				name: "one invalid transaction",
				block: s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
					[]*externalapi.DomainTransaction{validTx, unknownOutputTx}),
				expectedError: ruleerrors.ErrPartialBlock,
			},
			{
				name: "double spend across transactions",
				block: s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
					[]*externalapi.DomainTransaction{validTx, s.spend(genesisOutpoint, testutils.Output(90, s.x.Owner()))}),
				expectedError: ruleerrors.ErrPartialBlock,
			},
			{
				name:          "missing coinbase",
				block:         blockWithCoinbase(nil),
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
			{
				name: "coinbase with inputs",
				block: blockWithCoinbase(&externalapi.DomainTransaction{
					Inputs:  []*externalapi.DomainTransactionInput{{PreviousOutpoint: *genesisOutpoint}},
					Outputs: []*externalapi.DomainTransactionOutput{testutils.Output(50, s.x.Owner())},
				}),
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
			{
				name: "coinbase with two outputs",
				block: blockWithCoinbase(&externalapi.DomainTransaction{
					Outputs: []*externalapi.DomainTransactionOutput{
						testutils.Output(50, s.x.Owner()), testutils.Output(50, s.x.Owner())},
				}),
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
			{
				name:          "negative coinbase",
				block:         blockWithCoinbase(testutils.CoinbaseTransaction(s.x.Owner(), -1, nil)),
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
			{
				name: "coinbase among transactions",
				block: s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
					[]*externalapi.DomainTransaction{testutils.CoinbaseTransaction(s.x.Owner(), 1000, nil)}),
				expectedError: ruleerrors.ErrMultipleCoinbases,
			},
			{
				name:          "duplicate block",
				block:         existingBlock,
				expectedError: ruleerrors.ErrDuplicateBlock,
			},
			{
				name:          "nil block",
				block:         nil,
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
			{
				name: "nil coinbase output",
				block: blockWithCoinbase(&externalapi.DomainTransaction{
					Outputs: []*externalapi.DomainTransactionOutput{nil},
				}),
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
			{
				name: "nil transaction",
				block: s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
					[]*externalapi.DomainTransaction{validTx, nil}),
				expectedError: ruleerrors.ErrPartialBlock,
			},
			{
				name: "nil input",
				block: s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
					[]*externalapi.DomainTransaction{{
						Inputs:  []*externalapi.DomainTransactionInput{nil},
						Outputs: []*externalapi.DomainTransactionOutput{testutils.Output(1, s.x.Owner())},
					}}),
				expectedError: ruleerrors.ErrPartialBlock,
			},
			{
				name: "nil output",
				block: s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
					[]*externalapi.DomainTransaction{{
						Inputs:  []*externalapi.DomainTransactionInput{{PreviousOutpoint: *genesisOutpoint}},
						Outputs: []*externalapi.DomainTransactionOutput{nil},
					}}),
				expectedError: ruleerrors.ErrPartialBlock,
			},
			{
				name:          "coinbase recreating an output spent in its block",
				block:         repeatedGenesisCoinbase,
				expectedError: ruleerrors.ErrBadCoinbaseTransaction,
			},
		}

		for _, test := range tests {
			retainedBefore := s.tc.RetainedBlockCount()
			tipBefore := s.tc.MaxHeightBlockHash()
			commitmentBefore := s.tc.MaxHeightUTXOSet().Commitment()

			err := s.tc.AddBlock(test.block)
			if !errors.Is(err, test.expectedError) {
				t.Fatalf("TestAddBlockRejections: %s: expected %s, got: %v", test.name, test.expectedError, err)
			}

			if s.tc.RetainedBlockCount() != retainedBefore {
				t.Fatalf("TestAddBlockRejections: %s: the rejected block was retained", test.name)
			}
			if !s.tc.MaxHeightBlockHash().Equal(tipBefore) {
				t.Fatalf("TestAddBlockRejections: %s: the tip changed", test.name)
			}
			if !s.tc.MaxHeightUTXOSet().Commitment().Equal(commitmentBefore) {
				t.Fatalf("TestAddBlockRejections: %s: the tip UTXO set changed", test.name)
			}
		}
	})
}

func TestPartialBlockListsInvalidTransactions(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		genesisOutpoint := testutils.Outpoint(s.genesis.Coinbase, 0)
		first := s.spend(genesisOutpoint, testutils.Output(100, s.x.Owner()))
		second := s.spend(genesisOutpoint, testutils.Output(99, s.x.Owner()))

		block := s.tc.BuildBlockWithParent(s.genesisHash, s.x.Owner(), 50,
			[]*externalapi.DomainTransaction{first, second})
		err := s.tc.AddBlock(block)

		invalidTransactions := &ruleerrors.ErrInvalidTransactionsInBlock{}
		if !errors.As(err, invalidTransactions) {
			t.Fatalf("TestPartialBlockListsInvalidTransactions: expected ErrInvalidTransactionsInBlock, got: %v", err)
		}
		if len(invalidTransactions.InvalidTransactions) != 1 {
			t.Fatalf("TestPartialBlockListsInvalidTransactions: expected a single invalid transaction, got %d",
				len(invalidTransactions.InvalidTransactions))
		}
		invalid := invalidTransactions.InvalidTransactions[0]
		if invalid.Transaction != second || !errors.Is(invalid.Error, ruleerrors.ErrUnknownOutput) {
			t.Fatalf("TestPartialBlockListsInvalidTransactions: unexpected invalid transaction %s", invalid)
		}
	})
}

func TestRetentionWindow(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		const window = 10
		s := setup(t, scheme, window)

		// chain[h] is the block at height h
		chain := append([]*externalapi.DomainHash{s.genesisHash}, s.buildChain(s.genesisHash, 20)...)
		if s.tc.MaxHeight() != 20 || s.tc.MinRetainedHeight() != 10 {
			t.Fatalf("TestRetentionWindow: expected retained heights [10, 20], got [%d, %d]",
				s.tc.MinRetainedHeight(), s.tc.MaxHeight())
		}

		tests := []struct {
			name         string
			parentHeight int
			expectedErr  error
		}{
			{name: "parent inside the window", parentHeight: 15},
			{name: "parent at the bottom of the window", parentHeight: 20 - window},
			{name: "parent right below the window", parentHeight: 20 - window - 1, expectedErr: ruleerrors.ErrUnknownParent},
			{name: "parent far below the window", parentHeight: 0, expectedErr: ruleerrors.ErrUnknownParent},
		}
		for _, test := range tests {
			_, blockHash, err := s.tc.AddBlockWithParent(chain[test.parentHeight], s.x.Owner(), 50, nil)
			if test.expectedErr == nil {
				if err != nil {
					t.Fatalf("TestRetentionWindow: %s: AddBlockWithParent: %+v", test.name, err)
				}
				height, err := s.tc.GetBlockHeight(blockHash)
				if err != nil {
					t.Fatalf("GetBlockHeight: %+v", err)
				}
				if height != uint64(test.parentHeight+1) {
					t.Fatalf("TestRetentionWindow: %s: expected height %d, got %d",
						test.name, test.parentHeight+1, height)
				}
				continue
			}
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("TestRetentionWindow: %s: expected %s, got: %v", test.name, test.expectedErr, err)
			}
		}

		for height := 0; height < 20-window; height++ {
			_, err := s.tc.GetBlock(chain[height])
			if !errors.Is(err, consensus.ErrBlockNotFound) {
				t.Fatalf("TestRetentionWindow: expected block at height %d to be pruned, got: %v", height, err)
			}
		}

		// Advancing the tip moves the bottom of the window up
		s.buildChain(chain[20], 1)
		_, _, err := s.tc.AddBlockWithParent(chain[20-window], s.x.Owner(), 50, nil)
		if !errors.Is(err, ruleerrors.ErrUnknownParent) {
			t.Fatalf("TestRetentionWindow: expected ErrUnknownParent once the window moved, got: %v", err)
		}
	})
}

func TestPruning(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		const window = 3
		s := setup(t, scheme, window)

		chain := s.buildChain(s.genesisHash, 10)
		if s.tc.RetainedBlockCount() != window+1 {
			t.Fatalf("TestPruning: expected %d retained blocks, got %d", window+1, s.tc.RetainedBlockCount())
		}

		// A fork at height 8, off the block at height 7
		_, forkHash, err := s.tc.AddBlockWithParent(chain[6], s.x.Owner(), 50, nil)
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}
		if s.tc.RetainedBlockCount() != window+2 {
			t.Fatalf("TestPruning: expected %d retained blocks, got %d", window+2, s.tc.RetainedBlockCount())
		}

		s.buildChain(chain[9], 2)
		if s.tc.RetainedBlockCount() != window+1 {
			t.Fatalf("TestPruning: expected %d retained blocks, got %d", window+1, s.tc.RetainedBlockCount())
		}
		_, err = s.tc.GetBlock(forkHash)
		if !errors.Is(err, consensus.ErrBlockNotFound) {
			t.Fatalf("TestPruning: expected the fork to be pruned, got: %v", err)
		}
		if len(s.tc.BlockHashesAtHeight(8)) != 0 {
			t.Fatalf("TestPruning: height 8 is still indexed")
		}
	})
}

func TestForkIsolation(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		y := scheme.NewSigner(2)
		genesisOutpoint := testutils.Outpoint(s.genesis.Coinbase, 0)
		toX := s.spend(genesisOutpoint, testutils.Output(100, s.x.Owner()))
		toY := s.spend(genesisOutpoint, testutils.Output(100, y.Owner()))

		_, hashX, err := s.tc.AddBlockWithParent(s.genesisHash, s.x.Owner(), 50, []*externalapi.DomainTransaction{toX})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}
		_, hashY, err := s.tc.AddBlockWithParent(s.genesisHash, s.x.Owner(), 50, []*externalapi.DomainTransaction{toY})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}

		setX, err := s.tc.GetUTXOSet(hashX)
		if err != nil {
			t.Fatalf("GetUTXOSet: %+v", err)
		}
		setY, err := s.tc.GetUTXOSet(hashY)
		if err != nil {
			t.Fatalf("GetUTXOSet: %+v", err)
		}
		if !setX.Contains(testutils.Outpoint(toX, 0)) || setX.Contains(testutils.Outpoint(toY, 0)) {
			t.Fatalf("TestForkIsolation: fork X holds the wrong outputs")
		}
		if !setY.Contains(testutils.Outpoint(toY, 0)) || setY.Contains(testutils.Outpoint(toX, 0)) {
			t.Fatalf("TestForkIsolation: fork Y holds the wrong outputs")
		}

		tips := s.tc.Tips()
		if len(tips) != 2 || !tips[0].Equal(hashX) || !tips[1].Equal(hashY) {
			t.Fatalf("TestForkIsolation: expected tips [%s, %s], got %v", hashX, hashY, tips)
		}
		if !s.tc.MaxHeightBlockHash().Equal(hashX) {
			t.Fatalf("TestForkIsolation: expected the first block attached at the max height to be the tip")
		}

		// Spending y's output is only valid on fork Y
		spendY, err := testutils.SpendingTransaction(y, []*externalapi.DomainOutpoint{testutils.Outpoint(toY, 0)},
			testutils.Output(100, y.Owner()))
		if err != nil {
			t.Fatalf("SpendingTransaction: %s", err)
		}
		_, _, err = s.tc.AddBlockWithParent(hashX, s.x.Owner(), 50, []*externalapi.DomainTransaction{spendY})
		if !errors.Is(err, ruleerrors.ErrPartialBlock) {
			t.Fatalf("TestForkIsolation: expected ErrPartialBlock on fork X, got: %v", err)
		}
		_, hashY2, err := s.tc.AddBlockWithParent(hashY, s.x.Owner(), 50, []*externalapi.DomainTransaction{spendY})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}
		if !s.tc.MaxHeightBlockHash().Equal(hashY2) {
			t.Fatalf("TestForkIsolation: expected fork Y to take over the tip")
		}
	})
}

func TestAddBlockRemovesTransactionsFromPool(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		genesisOutpoint := testutils.Outpoint(s.genesis.Coinbase, 0)
		included := s.spend(genesisOutpoint, testutils.Output(100, s.x.Owner()))
		conflicting := s.spend(genesisOutpoint, testutils.Output(90, s.x.Owner()))

		for _, tx := range []*externalapi.DomainTransaction{included, conflicting} {
			err := s.tc.AddTransaction(tx)
			if err != nil {
				t.Fatalf("AddTransaction: %+v", err)
			}
		}
		if s.tc.TransactionPool().Len() != 2 {
			t.Fatalf("TestAddBlockRemovesTransactionsFromPool: expected 2 pool transactions, got %d",
				s.tc.TransactionPool().Len())
		}

		_, _, err := s.tc.AddBlockWithParent(s.genesisHash, s.x.Owner(), 50, []*externalapi.DomainTransaction{included})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}
		if s.tc.TransactionPool().Len() != 0 {
			t.Fatalf("TestAddBlockRemovesTransactionsFromPool: expected an empty pool, got %d transactions",
				s.tc.TransactionPool().Len())
		}
	})
}

func TestSideBlockLeavesPoolIntact(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		tipHash := s.buildChain(s.genesisHash, 1)[0]

		genesisOutpoint := testutils.Outpoint(s.genesis.Coinbase, 0)
		pooled := s.spend(genesisOutpoint, testutils.Output(100, s.x.Owner()))
		err := s.tc.AddTransaction(pooled)
		if err != nil {
			t.Fatalf("AddTransaction: %+v", err)
		}

		conflicting := s.spend(genesisOutpoint, testutils.Output(90, s.x.Owner()))
		_, _, err = s.tc.AddBlockWithParent(s.genesisHash, s.x.Owner(), 50,
			[]*externalapi.DomainTransaction{conflicting})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}

		if !s.tc.MaxHeightBlockHash().Equal(tipHash) {
			t.Fatalf("TestSideBlockLeavesPoolIntact: the side block replaced the tip")
		}
		_, err = s.tc.ValidateTransaction(pooled)
		if err != nil {
			t.Fatalf("TestSideBlockLeavesPoolIntact: the pooled transaction isn't valid on the tip: %+v", err)
		}
		if !s.tc.TransactionPool().HasTransaction(consensushashing.TransactionID(pooled)) {
			t.Fatalf("TestSideBlockLeavesPoolIntact: the side block evicted a transaction valid on the tip")
		}

		// A block that becomes the tip evicts the conflict
		_, _, err = s.tc.AddBlockWithParent(tipHash, s.x.Owner(), 50,
			[]*externalapi.DomainTransaction{s.spend(genesisOutpoint, testutils.Output(80, s.x.Owner()))})
		if err != nil {
			t.Fatalf("AddBlockWithParent: %+v", err)
		}
		if s.tc.TransactionPool().Len() != 0 {
			t.Fatalf("TestSideBlockLeavesPoolIntact: expected the tip block to evict the conflicting "+
				"transaction, got %d pool transactions", s.tc.TransactionPool().Len())
		}
	})
}

func TestConcurrentAddBlock(t *testing.T) {
	testutils.ForAllVerifiers(t, func(t *testing.T, scheme *testutils.SignatureScheme) {
		s := setup(t, scheme, consensus.DefaultRetentionWindow)
		const forkCount = 8
		const forkLength = 3

		genesisUTXOSet, err := s.tc.GetUTXOSet(s.genesisHash)
		if err != nil {
			t.Fatalf("GetUTXOSet: %+v", err)
		}
		genesisCommitment := genesisUTXOSet.Commitment()

		var wg sync.WaitGroup
		for i := 0; i < forkCount; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < forkLength; j++ {
					if !genesisUTXOSet.Commitment().Equal(genesisCommitment) {
						t.Errorf("TestConcurrentAddBlock: the genesis commitment changed")
						return
					}
				}
			}()
			go func() {
				defer wg.Done()
				parentHash := s.genesisHash
				for j := 0; j < forkLength; j++ {
					_, blockHash, err := s.tc.AddBlockWithParent(parentHash, s.x.Owner(), 50, nil)
					if err != nil {
						t.Errorf("AddBlockWithParent: %+v", err)
						return
					}
					parentHash = blockHash
				}
			}()
		}
		wg.Wait()

		if s.tc.RetainedBlockCount() != forkCount*forkLength+1 {
			t.Fatalf("TestConcurrentAddBlock: expected %d retained blocks, got %d",
				forkCount*forkLength+1, s.tc.RetainedBlockCount())
		}
		if s.tc.MaxHeight() != forkLength || len(s.tc.Tips()) != forkCount {
			t.Fatalf("TestConcurrentAddBlock: expected %d tips at height %d, got %d at height %d",
				forkCount, forkLength, len(s.tc.Tips()), s.tc.MaxHeight())
		}

		// Every tip holds the genesis output plus forkLength coinbases of 50
		for _, tipHash := range s.tc.Tips() {
			tipUTXOSet, err := s.tc.GetUTXOSet(tipHash)
			if err != nil {
				t.Fatalf("GetUTXOSet: %+v", err)
			}
			if tipUTXOSet.Len() != forkLength+1 {
				t.Fatalf("TestConcurrentAddBlock: expected %d entries at tip %s, got %d",
					forkLength+1, tipHash, tipUTXOSet.Len())
			}
			if tipUTXOSet.Commitment().Equal(genesisCommitment) {
				t.Fatalf("TestConcurrentAddBlock: tip %s has the genesis commitment", tipHash)
			}
		}
	})
}
