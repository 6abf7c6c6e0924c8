package signal

import (
	"os"
	"os/signal"
)

// interruptSignals defines the signals that are handled to do a clean
// shutdown
var interruptSignals = []os.Signal{os.Interrupt}

// InterruptListener listens for OS signals such as SIGINT (Ctrl+C). It
// returns a channel that is closed once the first signal is received.
func InterruptListener() <-chan struct{} {
	c := make(chan struct{})
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		sig := <-interruptChannel
		log.Infof("Received signal (%s). Shutting down...", sig)
		close(c)

		// Repeated signals only remind the user a shutdown is in progress
		for sig := range interruptChannel {
			log.Infof("Received signal (%s). Already shutting down...", sig)
		}
	}()

	return c
}

// InterruptRequested returns true when the channel returned by
// InterruptListener was closed. This simplifies early shutdown slightly
// since the caller can just use an if statement instead of a select.
func InterruptRequested(interrupted <-chan struct{}) bool {
	select {
	case <-interrupted:
		return true
	default:
	}

	return false
}
