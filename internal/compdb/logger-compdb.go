package compdb

import "rcompdb/internal/common"

// anywhere in the compdb code, use logCompdb.Info() and other methods for logging
var logCompdb = common.MakeStderrLogger(0)

func SetLoggerCompdb(logger *common.LoggerWrapper) {
	logCompdb = logger
}
