package common

import (
	"runtime/debug"
)

// buildVersion is set via -ldflags "-X rcompdb/internal/common.buildVersion=v1.2".
var buildVersion string

func GetVersion() string {
	if buildVersion != "" {
		return buildVersion
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "devel"
}
