package config

import (
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/utxotree/domain/consensus"
	"github.com/kaspanet/utxotree/domain/consensus/processes/batchapplier"
	"github.com/kaspanet/utxotree/domain/miningmanager/mempool"
	"github.com/pkg/errors"
)

const (
	defaultLogLevel        = "info"
	defaultLogFilename     = "utxotreesim.log"
	defaultErrLogFilename  = "utxotreesim_err.log"
	defaultBlocks          = 100
	defaultForkProbability = 0.2
	defaultTxsPerBlock     = 5
	defaultStrategy        = "fee"
	defaultSeed            = 1
)

// Flags defines the configuration options for the simulator.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ConfigFile         string  `short:"C" long:"configfile" description:"Path to an ini configuration file"`
	RetentionWindow    uint64  `long:"retention-window" description:"Number of heights below the tip whose blocks are retained"`
	Blocks             int     `long:"blocks" description:"Number of blocks to mine"`
	ForkProbability    float64 `long:"fork-probability" description:"Probability, between 0 and 1, that a block is mined on an older parent"`
	TxsPerBlock        int     `long:"txs-per-block" description:"Number of transactions submitted to the pool before every block"`
	StrategyName       string  `long:"strategy" description:"Transaction selection strategy {ordered, fee, exact}"`
	ExactMaxCandidates int     `long:"exact-max-candidates" description:"Maximum batch size the exact strategy solves before falling back to fee ordering"`
	MaxPoolTxs         int     `long:"max-pool-txs" description:"Maximum number of transactions held in the transaction pool"`
	Seed               int64   `long:"seed" description:"Seed of the simulation's randomness"`
	LogDir             string  `long:"logdir" description:"Directory to log output. Logs go to stdout only when empty"`
	LogLevel           string  `short:"d" long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	DumpUTXO           bool    `long:"dump-utxo" description:"Dump the UTXO set of the tip once the simulation ends"`
}

// Config defines the configuration options for the simulator, resolved
// from its Flags
type Config struct {
	*Flags
	Strategy batchapplier.Strategy
}

// LogFile returns the path of the main log file, or an empty string if
// logging to files is disabled
func (cfg *Config) LogFile() string {
	if cfg.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.LogDir, defaultLogFilename)
}

// ErrLogFile returns the path of the error log file, or an empty string if
// logging to files is disabled
func (cfg *Config) ErrLogFile() string {
	if cfg.LogDir == "" {
		return ""
	}
	return filepath.Join(cfg.LogDir, defaultErrLogFilename)
}

// ConsensusConfig returns the consensus configuration the simulator runs
// with
func (cfg *Config) ConsensusConfig() *consensus.Config {
	consensusConfig := consensus.DefaultConfig()
	consensusConfig.RetentionWindow = cfg.RetentionWindow
	consensusConfig.Mempool = &mempool.Config{MaximumTransactionCount: cfg.MaxPoolTxs}
	return consensusConfig
}

func defaultFlags() *Flags {
	return &Flags{
		RetentionWindow:    consensus.DefaultRetentionWindow,
		Blocks:             defaultBlocks,
		ForkProbability:    defaultForkProbability,
		TxsPerBlock:        defaultTxsPerBlock,
		StrategyName:       defaultStrategy,
		ExactMaxCandidates: batchapplier.DefaultMaxExactCandidates,
		MaxPoolTxs:         mempool.DefaultConfig().MaximumTransactionCount,
		Seed:               defaultSeed,
		LogLevel:           defaultLogLevel,
	}
}

// LoadConfig parses args into a Config.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load the configuration file, if given, overwriting defaults
// 	4) Parse the command line again so its options take precedence
// 	5) Validate the result
func LoadConfig(args []string) (*Config, error) {
	cfgFlags := defaultFlags()

	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
	}

	parser := flags.NewParser(cfgFlags, flags.Default)
	if preCfg.ConfigFile != "" {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			return nil, errors.Wrapf(err, "error parsing config file %s", preCfg.ConfigFile)
		}
	}

	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(remainingArgs) > 0 {
		return nil, errors.Errorf("unexpected arguments: %v", remainingArgs)
	}

	return resolveConfig(cfgFlags)
}

func resolveConfig(cfgFlags *Flags) (*Config, error) {
	if cfgFlags.RetentionWindow == 0 {
		return nil, errors.New("--retention-window must be positive")
	}
	if cfgFlags.Blocks < 0 {
		return nil, errors.Errorf("--blocks must not be negative, got %d", cfgFlags.Blocks)
	}
	if cfgFlags.ForkProbability < 0 || cfgFlags.ForkProbability > 1 {
		return nil, errors.Errorf("--fork-probability must be between 0 and 1, got %g", cfgFlags.ForkProbability)
	}
	if cfgFlags.TxsPerBlock < 0 {
		return nil, errors.Errorf("--txs-per-block must not be negative, got %d", cfgFlags.TxsPerBlock)
	}
	if cfgFlags.ExactMaxCandidates <= 0 {
		return nil, errors.Errorf("--exact-max-candidates must be positive, got %d", cfgFlags.ExactMaxCandidates)
	}
	if cfgFlags.MaxPoolTxs <= 0 {
		return nil, errors.Errorf("--max-pool-txs must be positive, got %d", cfgFlags.MaxPoolTxs)
	}
	if cfgFlags.LogDir != "" {
		cfgFlags.LogDir = cleanAndExpandPath(cfgFlags.LogDir)
	}

	strategy, err := batchapplier.StrategyByName(cfgFlags.StrategyName)
	if err != nil {
		return nil, err
	}
	if exact, ok := strategy.(*batchapplier.ExactMaxWeight); ok {
		exact.MaxCandidates = cfgFlags.ExactMaxCandidates
	}

	return &Config{
		Flags:    cfgFlags,
		Strategy: strategy,
	}, nil
}

// cleanAndExpandPath expands environment variables and a leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = homeDir + path[1:]
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
