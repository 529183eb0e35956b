//go:build !windows

package daemon

import "golang.org/x/sys/unix"

func openFilesLimit() uint64 {
	var rLimit unix.Rlimit
	_ = unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit)
	return uint64(rLimit.Cur)
}
