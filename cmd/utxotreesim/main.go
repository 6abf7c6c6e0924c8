package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/kaspanet/utxotree/infrastructure/config"
	"github.com/kaspanet/utxotree/infrastructure/logger"
	"github.com/kaspanet/utxotree/infrastructure/os/signal"
	"github.com/kaspanet/utxotree/util/panics"
)

func main() {
	defer panics.HandlePanic(log, nil)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}

	err = initLog(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing the logger: %s\n", err)
		os.Exit(1)
	}
	defer logger.BackendLog.Close()

	interrupt := signal.InterruptListener()

	sim, err := newSimulator(cfg)
	if err != nil {
		panics.Exit(log, fmt.Sprintf("Error creating the simulator: %+v", err))
	}

	doneChan := make(chan error)
	spawn(func() {
		doneChan <- sim.run(interrupt)
	})
	err = <-doneChan
	if err != nil {
		panics.Exit(log, fmt.Sprintf("Error in the simulation: %+v", err))
	}

	if cfg.DumpUTXO {
		err = sim.dumpUTXOSet(os.Stdout)
		if err != nil {
			panics.Exit(log, fmt.Sprintf("Error dumping the UTXO set: %+v", err))
		}
	}
}

func initLog(cfg *config.Config) error {
	var err error
	if cfg.LogFile() != "" {
		err = logger.InitLog(cfg.LogFile(), cfg.ErrLogFile())
	} else {
		err = logger.InitLogStdout()
	}
	if err != nil {
		return err
	}
	return logger.ParseAndSetLogLevels(cfg.LogLevel)
}
