package batchapplier

import (
	"github.com/kaspanet/utxotree/infrastructure/logger"
)

var log = logger.RegisterSubSystem("BAPL")
