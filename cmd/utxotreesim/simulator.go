package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/kaspanet/utxotree/domain/consensus"
	"github.com/kaspanet/utxotree/domain/consensus/model/externalapi"
	"github.com/kaspanet/utxotree/domain/consensus/ruleerrors"
	"github.com/kaspanet/utxotree/domain/consensus/utils/consensushashing"
	"github.com/kaspanet/utxotree/domain/consensus/utils/txsign"
	"github.com/kaspanet/utxotree/domain/miningmanager"
	"github.com/kaspanet/utxotree/infrastructure/config"
	"github.com/kaspanet/utxotree/infrastructure/logger"
	"github.com/kaspanet/utxotree/infrastructure/os/signal"
	"github.com/pkg/errors"
)

const (
	walletCount       = 4
	genesisReward     = 1_000_000
	blockReward       = 500
	maxFee            = 100
	maxForksPerRound  = 2
	doubleSpendChance = 0.3
)

type simulator struct {
	cfg     *config.Config
	random  *rand.Rand
	wallets []*wallet

	// walletsByOwner maps string(owner) to the wallet holding its key
	walletsByOwner map[string]*wallet

	genesisHash   *externalapi.DomainHash
	consensus     consensus.Consensus
	miningManager miningmanager.MiningManager

	blockHashesByHeightLock sync.Mutex
	blockHashesByHeight     map[uint64][]*externalapi.DomainHash

	stats simulationStats
}

type simulationStats struct {
	blocksMined        int
	forkBlocksAccepted int
	forkBlocksRejected int
	transactionsSent   int
	transactionsMined  int
	feesCollected      int64
}

func newSimulator(cfg *config.Config) (*simulator, error) {
	wallets, err := newWallets(cfg.Seed, walletCount)
	if err != nil {
		return nil, err
	}
	walletsByOwner := make(map[string]*wallet, len(wallets))
	for _, w := range wallets {
		walletsByOwner[string(w.owner)] = w
	}

	genesis := &externalapi.DomainBlock{
		Coinbase: &externalapi.DomainTransaction{
			Outputs: []*externalapi.DomainTransactionOutput{{Value: genesisReward, Owner: wallets[0].owner}},
			Payload: []byte("utxotreesim genesis"),
		},
	}
	consensusConfig := cfg.ConsensusConfig()
	c, err := consensus.NewFactory().NewConsensus(consensusConfig, genesis)
	if err != nil {
		return nil, err
	}
	miningManager := miningmanager.NewFactory().NewMiningManager(c, consensusConfig,
		&miningmanager.Config{Strategy: cfg.Strategy})

	genesisHash := consensushashing.BlockHash(genesis)
	return &simulator{
		cfg:                 cfg,
		random:              rand.New(rand.NewSource(cfg.Seed)),
		wallets:             wallets,
		walletsByOwner:      walletsByOwner,
		genesisHash:         genesisHash,
		consensus:           c,
		miningManager:       miningManager,
		blockHashesByHeight: map[uint64][]*externalapi.DomainHash{0: {genesisHash}},
	}, nil
}

// run mines cfg.Blocks blocks on the tip, occasionally racing fork blocks
// onto older retained parents, until done or interrupted
func (s *simulator) run(interrupt <-chan struct{}) error {
	log.Infof("Simulating %d blocks with a retention window of %d and the %s strategy",
		s.cfg.Blocks, s.cfg.RetentionWindow, s.cfg.Strategy.Name())

	for round := 0; round < s.cfg.Blocks; round++ {
		if signal.InterruptRequested(interrupt) {
			log.Infof("Interrupted after %d rounds", round)
			break
		}

		err := s.submitTransactions()
		if err != nil {
			return err
		}
		err = s.mineBlock(round)
		if err != nil {
			return err
		}
		if s.random.Float64() < s.cfg.ForkProbability {
			s.mineForks(round)
		}
	}

	err := s.attachBeyondWindow()
	if err != nil {
		return err
	}
	s.report()
	return nil
}

// submitTransactions submits up to cfg.TxsPerBlock transactions spending
// random outputs of the tip. Some outputs are spent twice, so that the pool
// holds conflicting transactions for the selection strategy to choose from.
func (s *simulator) submitTransactions() error {
	spendable, err := s.spendableOutputs()
	if err != nil {
		return err
	}

	submitted := 0
	for _, i := range s.random.Perm(len(spendable)) {
		if submitted >= s.cfg.TxsPerBlock {
			break
		}
		output := spendable[i]
		spendCount := 1
		if s.random.Float64() < doubleSpendChance {
			spendCount = 2
		}

		for j := 0; j < spendCount; j++ {
			transaction, err := s.spendOutput(output)
			if err != nil {
				return err
			}
			transactionID := consensushashing.TransactionID(transaction)
			err = s.miningManager.ValidateAndInsertTransaction(transaction)
			if err != nil {
				if ruleerrors.IsRuleError(err) {
					log.Debugf("Transaction %s was rejected: %s", transactionID, err)
				} else {
					log.Warnf("Couldn't submit transaction %s: %s", transactionID, err)
				}
				continue
			}
			submitted++
		}
	}
	s.stats.transactionsSent += submitted
	return nil
}

type spendableOutput struct {
	outpoint *externalapi.DomainOutpoint
	entry    externalapi.UTXOEntry
	wallet   *wallet
}

func (s *simulator) spendableOutputs() ([]*spendableOutput, error) {
	iterator := s.consensus.MaxHeightUTXOSet().Iterator()
	defer iterator.Close()

	var spendable []*spendableOutput
	for ok := iterator.First(); ok; ok = iterator.Next() {
		outpoint, entry, err := iterator.Get()
		if err != nil {
			return nil, err
		}
		w, ok := s.walletsByOwner[string(entry.Owner())]
		if !ok || entry.Amount() <= 1 {
			continue
		}
		spendable = append(spendable, &spendableOutput{outpoint: outpoint, entry: entry, wallet: w})
	}
	return spendable, nil
}

// spendOutput splits output between two random wallets, paying a random fee
func (s *simulator) spendOutput(output *spendableOutput) (*externalapi.DomainTransaction, error) {
	amount := output.entry.Amount()
	feeCap := int64(maxFee)
	if amount-1 < feeCap {
		feeCap = amount - 1
	}
	fee := s.random.Int63n(feeCap + 1)
	remaining := amount - fee
	firstValue := remaining / 2

	transaction := &externalapi.DomainTransaction{
		Inputs: []*externalapi.DomainTransactionInput{{PreviousOutpoint: *output.outpoint}},
		Outputs: []*externalapi.DomainTransactionOutput{
			{Value: firstValue, Owner: s.randomWallet().owner},
			{Value: remaining - firstValue, Owner: s.randomWallet().owner},
		},
	}
	err := txsign.SignAllInputs(transaction, output.wallet.keyPair)
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *simulator) randomWallet() *wallet {
	return s.wallets[s.random.Intn(len(s.wallets))]
}

func (s *simulator) mineBlock(round int) error {
	miner := s.randomWallet()
	template, err := s.miningManager.GetBlockTemplate(miner.owner, blockReward, []byte(fmt.Sprintf("block %d", round)))
	if err != nil {
		return err
	}
	fees := template.Coinbase.Outputs[0].Value - blockReward

	blockHash, err := s.addBlock(template)
	if err != nil {
		return errors.Wrapf(err, "a block template built in round %d was rejected", round)
	}
	s.stats.blocksMined++
	s.stats.transactionsMined += len(template.Transactions)
	s.stats.feesCollected += fees
	log.Debugf("Mined block %s with %d transactions and %d in fees", blockHash, len(template.Transactions), fees)
	return nil
}

// mineForks races up to maxForksPerRound empty blocks onto random retained
// parents. A fork on the tip moves the window up, so a fork racing it onto
// the lowest retained height may lose its parent and be rejected.
func (s *simulator) mineForks(round int) {
	forkCount := 1 + s.random.Intn(maxForksPerRound)
	forks := make([]*externalapi.DomainBlock, forkCount)
	for i := range forks {
		forks[i] = &externalapi.DomainBlock{
			ParentHash: *s.randomRetainedBlockHash(),
			Coinbase: &externalapi.DomainTransaction{
				Outputs: []*externalapi.DomainTransactionOutput{{Value: blockReward, Owner: s.randomWallet().owner}},
				Payload: []byte(fmt.Sprintf("fork %d.%d", round, i)),
			},
		}
	}

	var statsLock sync.Mutex
	var wg sync.WaitGroup
	for _, fork := range forks {
		fork := fork
		wg.Add(1)
		spawn(func() {
			defer wg.Done()
			blockHash, err := s.addBlock(fork)

			statsLock.Lock()
			defer statsLock.Unlock()
			if err != nil {
				s.stats.forkBlocksRejected++
				log.Infof("Fork block on %s was rejected: %s", fork.ParentHash, err)
				return
			}
			s.stats.forkBlocksAccepted++
			log.Debugf("Attached fork block %s on %s", blockHash, fork.ParentHash)
		})
	}
	wg.Wait()
}

// attachBeyondWindow tries to attach a block to the genesis, which must fail
// once the genesis fell out of the retention window
func (s *simulator) attachBeyondWindow() error {
	if s.consensus.MaxHeight() <= s.cfg.RetentionWindow {
		return nil
	}
	block := &externalapi.DomainBlock{
		ParentHash: *s.genesisHash,
		Coinbase: &externalapi.DomainTransaction{
			Outputs: []*externalapi.DomainTransactionOutput{{Value: blockReward, Owner: s.wallets[0].owner}},
			Payload: []byte("beyond the window"),
		},
	}
	err := s.consensus.AddBlock(block)
	if !errors.Is(err, ruleerrors.ErrUnknownParent) {
		return errors.Errorf("expected a block on the pruned genesis to be rejected, got: %v", err)
	}
	log.Infof("A block on the pruned genesis was rejected: %s", err)
	return nil
}

func (s *simulator) addBlock(block *externalapi.DomainBlock) (*externalapi.DomainHash, error) {
	err := s.consensus.AddBlock(block)
	if err != nil {
		return nil, err
	}
	blockHash := consensushashing.BlockHash(block)
	height, err := s.consensus.GetBlockHeight(blockHash)
	if err != nil {
		// Pruned right away by a concurrent block
		return blockHash, nil
	}

	s.blockHashesByHeightLock.Lock()
	defer s.blockHashesByHeightLock.Unlock()
	s.blockHashesByHeight[height] = append(s.blockHashesByHeight[height], blockHash)
	return blockHash, nil
}

func (s *simulator) randomRetainedBlockHash() *externalapi.DomainHash {
	s.blockHashesByHeightLock.Lock()
	defer s.blockHashesByHeightLock.Unlock()

	minHeight := s.consensus.MinRetainedHeight()
	for height := range s.blockHashesByHeight {
		if height < minHeight {
			delete(s.blockHashesByHeight, height)
		}
	}

	height := minHeight + uint64(s.random.Int63n(int64(s.consensus.MaxHeight()-minHeight+1)))
	hashes := s.blockHashesByHeight[height]
	if len(hashes) == 0 {
		return s.consensus.MaxHeightBlockHash()
	}
	return hashes[s.random.Intn(len(hashes))]
}

func (s *simulator) report() {
	tipUTXOSet := s.consensus.MaxHeightUTXOSet()
	log.Infof("Tip %s at height %d, retaining heights %d to %d",
		s.consensus.MaxHeightBlockHash(), s.consensus.MaxHeight(), s.consensus.MinRetainedHeight(), s.consensus.MaxHeight())
	log.Infof("Tip UTXO set: %d entries, commitment %s", tipUTXOSet.Len(), tipUTXOSet.Commitment())
	log.Infof("Mined %d blocks holding %d out of %d submitted transactions, collecting %d in fees",
		s.stats.blocksMined, s.stats.transactionsMined, s.stats.transactionsSent, s.stats.feesCollected)
	log.Infof("Fork blocks: %d attached, %d rejected. %d transactions left in the pool",
		s.stats.forkBlocksAccepted, s.stats.forkBlocksRejected, len(s.miningManager.AllTransactions()))
	log.Tracef("Simulation stats: %s", logger.SpewClosure(s.stats))
}

type utxoDumpEntry struct {
	Outpoint string
	Amount   int64
	Owner    string
}

// dumpUTXOSet writes every entry of the tip's UTXO set to w
func (s *simulator) dumpUTXOSet(w io.Writer) error {
	iterator := s.consensus.MaxHeightUTXOSet().Iterator()
	defer iterator.Close()

	var entries []utxoDumpEntry
	for ok := iterator.First(); ok; ok = iterator.Next() {
		outpoint, entry, err := iterator.Get()
		if err != nil {
			return err
		}
		entries = append(entries, utxoDumpEntry{
			Outpoint: outpoint.String(),
			Amount:   entry.Amount(),
			Owner:    hex.EncodeToString(entry.Owner()),
		})
	}
	spew.Fdump(w, entries)
	return nil
}
