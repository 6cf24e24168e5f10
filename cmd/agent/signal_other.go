//go:build !unix

package main

import "os"

// no manual sync signal outside unix
func manualSyncSignals() []os.Signal {
	return nil
}
