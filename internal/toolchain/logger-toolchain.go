package toolchain

import "rcompdb/internal/common"

// anywhere in the toolchain code, use logToolchain.Info() and other methods for logging
var logToolchain = common.MakeStderrLogger(0)

func SetLoggerToolchain(logger *common.LoggerWrapper) {
	logToolchain = logger
}
