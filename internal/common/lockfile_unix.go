//go:build !windows

package common

import (
	"os"

	"golang.org/x/sys/unix"
)

// LockFile takes an exclusive advisory lock on fileName (creating it if needed).
// It blocks until the lock is acquired; the returned func releases it.
func LockFile(fileName string) (unlock func(), err error) {
	if err := MkdirForFile(fileName); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		_ = f.Close()
	}, nil
}
