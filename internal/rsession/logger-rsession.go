package rsession

import "rcompdb/internal/common"

// anywhere in the rsession code, use logRSession.Info() and other methods for logging
var logRSession = common.MakeStderrLogger(0)

func SetLoggerRSession(logger *common.LoggerWrapper) {
	logRSession = logger
}
