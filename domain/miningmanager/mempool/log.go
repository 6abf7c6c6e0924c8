package mempool

import (
	"github.com/kaspanet/utxotree/infrastructure/logger"
)

var log = logger.RegisterSubSystem("TXMP")
