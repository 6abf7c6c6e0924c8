package main

import (
	"github.com/kaspanet/utxotree/infrastructure/logger"
	"github.com/kaspanet/utxotree/util/panics"
)

var (
	log   = logger.RegisterSubSystem("USIM")
	spawn = panics.GoroutineWrapperFunc(log)
)
