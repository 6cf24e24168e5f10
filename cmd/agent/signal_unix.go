//go:build unix

package main

import (
	"os"
	"syscall"
)

func manualSyncSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1}
}
