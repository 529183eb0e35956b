package daemon

import "rcompdb/internal/common"

// anywhere in the daemon code, use logDaemon.Info() and other methods for logging
var logDaemon = common.MakeStderrLogger(0)
